package repository

import "fmt"

// AidKey is the deduplication key format shared by AidRepository.Keys
// and the aid bulk import: one aid of a given type on a given date per
// resident.
func AidKey(residentID int64, aidType, date string) string {
	return fmt.Sprintf("%d|%s|%s", residentID, aidType, date)
}
