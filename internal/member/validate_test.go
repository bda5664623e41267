package member

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "himpana/pkg/domain-errors"
)

func validEnrollment() EnrollmentRequest {
	return EnrollmentRequest{
		Name:             "Budi Santoso",
		RetirementNumber: "01-9-311589-40",
		PhoneNumber:      "081234567890",
		BirthDate:        "1958-04-12",
		Address:          "Jl. Merdeka No. 1",
		City:             "Bandung",
		BranchID:         1,
	}
}

func TestValidateEnrollmentAccepts(t *testing.T) {
	require.NoError(t, ValidateEnrollment(validEnrollment()))
}

func TestValidateEnrollmentRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EnrollmentRequest)
	}{
		{"name", func(r *EnrollmentRequest) { r.Name = "" }},
		{"retirement_number", func(r *EnrollmentRequest) { r.RetirementNumber = " " }},
		{"phone_number", func(r *EnrollmentRequest) { r.PhoneNumber = "" }},
		{"birth_date", func(r *EnrollmentRequest) { r.BirthDate = "" }},
		{"address", func(r *EnrollmentRequest) { r.Address = "" }},
		{"city", func(r *EnrollmentRequest) { r.City = "" }},
		{"branch_id", func(r *EnrollmentRequest) { r.BranchID = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validEnrollment()
			tc.mutate(&req)
			err := ValidateEnrollment(req)
			require.Error(t, err)
			assert.True(t, derrors.Is(err, derrors.CodeValidation))
		})
	}
}

func TestValidateEnrollmentRejectsBadRetirementNumberFormat(t *testing.T) {
	for _, bad := range []string{"12345", "1-9-311589-40", "01-9-31158-40", "01-9-311589-4", "01-9-311589-400", "ab-9-311589-40"} {
		req := validEnrollment()
		req.RetirementNumber = bad
		err := ValidateEnrollment(req)
		require.Error(t, err, "expected %q to fail", bad)
		assert.True(t, derrors.Is(err, derrors.CodeValidation))
	}
}

func TestValidateUpdateRequiresOldRetirementNumber(t *testing.T) {
	req := UpdateRequest{EnrollmentRequest: validEnrollment()}
	err := ValidateUpdate(req)
	require.Error(t, err)
	assert.True(t, derrors.Is(err, derrors.CodeValidation))

	req.OldRetirementNumber = "01-9-311589-40"
	require.NoError(t, ValidateUpdate(req))
}
