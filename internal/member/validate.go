package member

import (
	"regexp"
	"strings"

	derrors "himpana/pkg/domain-errors"
)

// retirementNumberRe is the fixed member identifier format: NN-N-NNNNNN-NN.
var retirementNumberRe = regexp.MustCompile(`^\d{2}-\d-\d{6}-\d{2}$`)

// ValidateEnrollment checks an enrollment payload before any side effect.
// Every field is required; the retirement number must match its fixed format.
func ValidateEnrollment(req EnrollmentRequest) error {
	missing := missingFields(req)
	if len(missing) > 0 {
		return derrors.New(derrors.CodeValidation, "missing required fields: "+strings.Join(missing, ", "))
	}
	if !retirementNumberRe.MatchString(req.RetirementNumber) {
		return derrors.New(derrors.CodeValidation, "retirement_number must match format NN-N-NNNNNN-NN")
	}
	return nil
}

// ValidateUpdate additionally requires the lookup key for the row being
// updated.
func ValidateUpdate(req UpdateRequest) error {
	if strings.TrimSpace(req.OldRetirementNumber) == "" {
		return derrors.New(derrors.CodeValidation, "missing required fields: old_retirement_number")
	}
	return ValidateEnrollment(req.EnrollmentRequest)
}

func missingFields(req EnrollmentRequest) []string {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	require("name", req.Name)
	require("retirement_number", req.RetirementNumber)
	require("phone_number", req.PhoneNumber)
	require("birth_date", req.BirthDate)
	require("address", req.Address)
	require("city", req.City)
	if req.BranchID == 0 {
		missing = append(missing, "branch_id")
	}
	return missing
}
