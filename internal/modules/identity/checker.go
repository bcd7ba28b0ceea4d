package identity

import (
	"fmt"
	"strings"

	"github.com/custodianhq/custodian/internal/domain"
)

// NameMatchThreshold is the minimum token similarity (0-100) for the
// declared and extracted names to be considered the same person.
const NameMatchThreshold = 85

// Check compares the declared identity fields against the machine-extracted
// travel-document fields. Pure function: no I/O, never fails. Missing or
// malformed values produce deterministic mismatches with field-named
// explanations, never errors.
func Check(declared domain.IdentityFields, extracted *domain.TravelDocument) domain.IdentityVerdict {
	verdict := domain.IdentityVerdict{Explanations: []string{}}

	extractedName := strings.TrimSpace(extracted.GivenName + " " + extracted.Surname)
	similarity := TokenSimilarity(declared.FullName, extractedName)
	verdict.NameMatch = similarity >= NameMatchThreshold
	if !verdict.NameMatch {
		verdict.Explanations = append(verdict.Explanations, fmt.Sprintf(
			"name mismatch: declared %q vs document %q (similarity %d, need %d)",
			declared.FullName, extractedName, similarity, NameMatchThreshold))
	}

	declaredID := strings.TrimSpace(declared.PersonalID)
	extractedID := strings.TrimSpace(extracted.DocumentNumber)
	verdict.IDMatch = declaredID != "" && declaredID == extractedID
	if !verdict.IDMatch {
		verdict.Explanations = append(verdict.Explanations, fmt.Sprintf(
			"personal id mismatch: declared %q vs document %q", declaredID, extractedID))
	}

	declaredDOB := NormalizeDate(declared.DateOfBirth)
	extractedDOB := NormalizeDate(extracted.BirthDateRaw)
	verdict.DOBMatch = DatesEqual(declaredDOB, extractedDOB)
	if !verdict.DOBMatch {
		verdict.Explanations = append(verdict.Explanations, fmt.Sprintf(
			"date of birth mismatch: declared %q vs document %q",
			declared.DateOfBirth, extracted.BirthDateRaw))
	}

	verdict.AllFieldsMatch = verdict.NameMatch && verdict.IDMatch && verdict.DOBMatch
	return verdict
}
