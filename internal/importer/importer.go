// Package importer reconciles spreadsheet rows against the registries.
//
// It is pure row logic: the sheet codec hands it ordered header-keyed
// rows, the repositories hand it a snapshot of existing identifying
// keys, and it hands back the accepted records plus skip counts. The
// duplicate set is computed once per batch, never queried per row, and
// grows as rows are accepted so in-file duplicates are caught too.
package importer

import (
	"strconv"
	"strings"

	"github.com/takaful-app/takaful/internal/models"
)

// Row is one spreadsheet row: column header → raw cell value.
type Row map[string]string

// Result reports what happened to a batch. The three counts always
// sum to the number of input rows.
type Result struct {
	Imported          int `json:"imported"`
	SkippedDuplicate  int `json:"skipped_duplicate"`
	SkippedIncomplete int `json:"skipped_incomplete"`
}

// AidResult adds the bucket an aid batch needs: rows whose resident
// could not be matched. The four counts sum to the input row count.
type AidResult struct {
	Imported          int `json:"imported"`
	SkippedDuplicate  int `json:"skipped_duplicate"`
	SkippedUnmatched  int `json:"skipped_unmatched"`
	SkippedIncomplete int `json:"skipped_incomplete"`
}

// ResidentFieldMap renames the localized resident sheet headers to
// canonical field names. Canonical headers pass through unchanged.
var ResidentFieldMap = map[string]string{
	"اسم الزوج":       "husband_name",
	"رقم هوية الزوج":  "husband_id_number",
	"اسم الزوجة":      "wife_name",
	"رقم هوية الزوجة": "wife_id_number",
	"رقم الهاتف":      "phone_number",
	"عدد الأفراد":     "num_family_members",
	"الإصابات":        "injuries",
	"الأمراض":         "diseases",
	"الضرر":           "damage_level",
	"المندوب":         "neighborhood",
	"ملاحظات":         "notes",
	"حالة الإقامة":    "residence_status",
	"استلم مساعدة":    "has_received_aid",
}

var residentFields = map[string]struct{}{
	"husband_name":       {},
	"husband_id_number":  {},
	"wife_name":          {},
	"wife_id_number":     {},
	"phone_number":       {},
	"num_family_members": {},
	"injuries":           {},
	"diseases":           {},
	"damage_level":       {},
	"neighborhood":       {},
	"notes":              {},
	"residence_status":   {},
	"has_received_aid":   {},
}

// ChildFieldMap renames the localized child sheet headers.
var ChildFieldMap = map[string]string{
	"اسم الطفل":   "name",
	"رقم الهوية":  "id_number",
	"تاريخ الميلاد": "birth_date",
	"العمر":       "age",
	"رقم الهاتف":  "phone",
	"الجنس":       "gender",
	"نوع الاستفادة": "benefit_type",
	"عدد الاستفادات": "benefit_count",
}

var childFields = map[string]struct{}{
	"name":          {},
	"id_number":     {},
	"birth_date":    {},
	"age":           {},
	"phone":         {},
	"gender":        {},
	"benefit_type":  {},
	"benefit_count": {},
}

// childRequired must all be present and non-empty for a row to count.
var childRequired = []string{"name", "id_number", "birth_date", "age", "phone", "gender", "benefit_type"}

// Residence statuses accepted on import (resident / displaced). Any
// other value falls back to the default.
const (
	ResidenceResident  = "مقيم"
	ResidenceDisplaced = "نازح"
)

// truthyTokens are the accepted spellings of "yes" in imported sheets.
var truthyTokens = map[string]struct{}{
	"yes":  {},
	"نعم":  {},
	"1":    {},
	"true": {},
}

// Truthy reports whether a raw cell value means yes.
func Truthy(s string) bool {
	_, ok := truthyTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// normalize renames a row's columns per the field map and drops
// anything outside the allowed target set. Values are trimmed.
func normalize(row Row, fieldMap map[string]string, allowed map[string]struct{}) Row {
	out := make(Row, len(row))
	for col, val := range row {
		name := strings.TrimSpace(col)
		if canonical, ok := fieldMap[name]; ok {
			name = canonical
		}
		if _, ok := allowed[name]; !ok {
			continue
		}
		out[name] = strings.TrimSpace(val)
	}
	return out
}

// intOrNil parses an integer cell, tolerating float renderings like
// "5.0". Returns nil for empty or unparseable values.
func intOrNil(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int(f)
		return &n
	}
	return nil
}

// Residents reconciles a resident sheet. A row needs at least one
// identifying ID number (husband or wife); rows without one can never
// be deduplicated and are counted as incomplete. A row whose ID
// numbers intersect the existing-key snapshot is a duplicate.
func Residents(rows []Row, existing map[string]struct{}) ([]models.Resident, Result) {
	accepted := make([]models.Resident, 0, len(rows))
	var res Result

	for _, raw := range rows {
		row := normalize(raw, ResidentFieldMap, residentFields)

		husbandID := row["husband_id_number"]
		wifeID := row["wife_id_number"]
		if husbandID == "" && wifeID == "" {
			res.SkippedIncomplete++
			continue
		}

		if keyIn(existing, husbandID) || keyIn(existing, wifeID) {
			res.SkippedDuplicate++
			continue
		}

		status := row["residence_status"]
		if status != ResidenceResident && status != ResidenceDisplaced {
			status = ResidenceResident
		}

		accepted = append(accepted, models.Resident{
			HusbandName:      row["husband_name"],
			HusbandIDNumber:  husbandID,
			WifeName:         row["wife_name"],
			WifeIDNumber:     wifeID,
			PhoneNumber:      row["phone_number"],
			NumFamilyMembers: intOrNil(row["num_family_members"]),
			Injuries:         row["injuries"],
			Diseases:         row["diseases"],
			DamageLevel:      row["damage_level"],
			Neighborhood:     row["neighborhood"],
			Notes:            row["notes"],
			HasReceivedAid:   Truthy(row["has_received_aid"]),
			ResidenceStatus:  status,
		})
		res.Imported++

		// Accepted keys join the snapshot so a second identical row in
		// the same file is a duplicate, not a constraint violation at
		// commit time.
		addKey(existing, husbandID)
		addKey(existing, wifeID)
	}
	return accepted, res
}

// Children reconciles a child sheet. All required fields must be
// present; id_number is the identifying key.
func Children(rows []Row, existing map[string]struct{}) ([]models.Child, Result) {
	accepted := make([]models.Child, 0, len(rows))
	var res Result

	for _, raw := range rows {
		row := normalize(raw, ChildFieldMap, childFields)

		if !hasAll(row, childRequired) {
			res.SkippedIncomplete++
			continue
		}
		age := intOrNil(row["age"])
		if age == nil {
			res.SkippedIncomplete++
			continue
		}

		idNumber := row["id_number"]
		if keyIn(existing, idNumber) {
			res.SkippedDuplicate++
			continue
		}

		benefitCount := 0
		if n := intOrNil(row["benefit_count"]); n != nil {
			benefitCount = *n
		}

		accepted = append(accepted, models.Child{
			Name:         row["name"],
			IDNumber:     idNumber,
			BirthDate:    row["birth_date"],
			Age:          *age,
			Phone:        row["phone"],
			Gender:       row["gender"],
			BenefitType:  row["benefit_type"],
			BenefitCount: benefitCount,
		})
		res.Imported++
		addKey(existing, idNumber)
	}
	return accepted, res
}

// AidKeyFunc builds the dedup key for an aid row; the caller supplies
// the store's key format so the snapshot and the reconciler agree.
type AidKeyFunc func(residentID int64, aidType, date string) string

// Aids reconciles an aid sheet. Residents are matched by exact
// husband name + ID number via the lookup map ("name|id" → resident
// ID); rows for unknown residents are skipped, and an aid of the same
// type on the same date for the same resident is a duplicate.
func Aids(rows []Row, residents map[string]int64, existing map[string]struct{}, key AidKeyFunc) ([]models.Aid, AidResult) {
	accepted := make([]models.Aid, 0, len(rows))
	var res AidResult

	for _, raw := range rows {
		name := strings.TrimSpace(raw["husband_name"])
		idNumber := strings.TrimSpace(raw["husband_id_number"])
		aidType := strings.TrimSpace(raw["aid_type"])
		date := strings.TrimSpace(raw["date"])

		if name == "" || idNumber == "" || aidType == "" || date == "" {
			res.SkippedIncomplete++
			continue
		}

		residentID, ok := residents[ResidentKey(name, idNumber)]
		if !ok {
			res.SkippedUnmatched++
			continue
		}

		k := key(residentID, aidType, date)
		if _, dup := existing[k]; dup {
			res.SkippedDuplicate++
			continue
		}

		accepted = append(accepted, models.Aid{
			ResidentID: residentID,
			AidType:    aidType,
			Date:       date,
		})
		res.Imported++
		existing[k] = struct{}{}
	}
	return accepted, res
}

// ResidentKey is the lookup key for matching aid rows to residents.
func ResidentKey(husbandName, husbandIDNumber string) string {
	return husbandName + "|" + husbandIDNumber
}

func hasAll(row Row, fields []string) bool {
	for _, f := range fields {
		if row[f] == "" {
			return false
		}
	}
	return true
}

func keyIn(set map[string]struct{}, key string) bool {
	if key == "" {
		return false
	}
	_, ok := set[key]
	return ok
}

func addKey(set map[string]struct{}, key string) {
	if key != "" {
		set[key] = struct{}{}
	}
}
