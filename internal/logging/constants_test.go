package logging

import (
	"testing"
)

func TestConstants(t *testing.T) {
	for name, value := range map[string]string{
		"FieldSourceID":      FieldSourceID,
		"FieldTransactionID": FieldTransactionID,
		"FieldDueID":         FieldDueID,
		"FieldAmount":        FieldAmount,
		"FieldOperation":     FieldOperation,
	} {
		if value == "" {
			t.Errorf("%s constant should not be empty", name)
		}
	}
}
