package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"himpana/internal/member"
	"himpana/internal/member/handler/mocks"
	derrors "himpana/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/member-mocks.go -package=mocks Service
type MemberHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *MemberHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestMemberHandlerSuite(t *testing.T) {
	suite.Run(t, new(MemberHandlerSuite))
}

func newTestHandler(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := New(mockService, logger, nil)
	r := chi.NewRouter()
	handler.Register(r)
	return r, mockService
}

func enrollmentBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(member.EnrollmentRequest{
		Name:             "Budi Santoso",
		RetirementNumber: "01-9-311589-40",
		PhoneNumber:      "081234567890",
		BirthDate:        "1958-03-14",
		Address:          "Jl. Merdeka 1",
		City:             "Bandung",
		BranchID:         1,
	})
	require.NoError(t, err)
	return body
}

func enrolledMember(image string) *member.Member {
	m := &member.Member{
		ID:               uuid.New(),
		Name:             "Budi Santoso",
		RetirementNumber: "01-9-311589-40",
		CardNumber:       "NA. 252.00001",
		PhoneNumber:      "081234567890",
		BirthDate:        "1958-03-14",
		Address:          "Jl. Merdeka 1",
		City:             "Bandung",
		BranchID:         1,
	}
	if image != "" {
		m.CardImagePath = &image
	}
	return m
}

func (s *MemberHandlerSuite) TestEnrollSuccess() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Enroll(gomock.Any(), gomock.Any()).Return(&member.Result{
		Status: member.StatusSuccess,
		Member: enrolledMember("uploads/idcard/idcard-abc.png"),
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/kirim-member", bytes.NewReader(enrollmentBody(s.T())))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "success", resp["status"])
	assert.Equal(s.T(), "uploads/idcard/idcard-abc.png", resp["foto_idcard"])
	data := resp["data"].(map[string]any)
	assert.Equal(s.T(), "Budi Santoso", data["name"])
	assert.Equal(s.T(), "01-9-311589-40", data["retirement_number"])
	assert.Equal(s.T(), "NA. 252.00001", data["card_number"])
	assert.Equal(s.T(), float64(1), data["branch_id"])
}

func (s *MemberHandlerSuite) TestEnrollDeliveryWarning() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Enroll(gomock.Any(), gomock.Any()).Return(&member.Result{
		Status:  member.StatusWarning,
		Member:  enrolledMember("uploads/idcard/idcard-abc.png"),
		Message: "member saved, but the card could not be delivered",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/kirim-member", bytes.NewReader(enrollmentBody(s.T())))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Persistence succeeded, so the warning still rides a 200.
	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "warning", resp["status"])
	assert.NotEmpty(s.T(), resp["message"])
	assert.Equal(s.T(), "uploads/idcard/idcard-abc.png", resp["foto_idcard"])
	assert.NotContains(s.T(), resp, "data")
}

func (s *MemberHandlerSuite) TestEnrollValidationError() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Enroll(gomock.Any(), gomock.Any()).Return(nil,
		derrors.New(derrors.CodeValidation, "missing required fields: name"))

	req := httptest.NewRequest(http.MethodPost, "/api/kirim-member", bytes.NewReader([]byte(`{"branch_id":1}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "error", resp["status"])
	assert.Equal(s.T(), "missing required fields: name", resp["message"])
}

func (s *MemberHandlerSuite) TestEnrollDuplicate() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Enroll(gomock.Any(), gomock.Any()).Return(nil,
		derrors.New(derrors.CodeDuplicate, "retirement number is already registered"))

	req := httptest.NewRequest(http.MethodPost, "/api/kirim-member", bytes.NewReader(enrollmentBody(s.T())))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *MemberHandlerSuite) TestEnrollMalformedJSON() {
	router, _ := newTestHandler(s.T())

	req := httptest.NewRequest(http.MethodPost, "/api/kirim-member", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *MemberHandlerSuite) TestEnrollRejectsNonJSONContentType() {
	router, _ := newTestHandler(s.T())

	req := httptest.NewRequest(http.MethodPost, "/api/kirim-member", bytes.NewReader(enrollmentBody(s.T())))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusUnsupportedMediaType, w.Code)
}

func (s *MemberHandlerSuite) TestUpdateSuccess() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req member.UpdateRequest) (*member.Result, error) {
			assert.Equal(s.T(), "01-9-311589-40", req.OldRetirementNumber)
			return &member.Result{
				Status: member.StatusSuccess,
				Member: enrolledMember("uploads/idcard/idcard-new.png"),
			}, nil
		})

	payload := map[string]any{
		"name":                  "Budi Santoso",
		"retirement_number":     "01-9-311589-40",
		"old_retirement_number": "01-9-311589-40",
		"phone_number":          "081234567890",
		"birth_date":            "1958-03-14",
		"address":               "Jl. Merdeka 1",
		"city":                  "Bandung",
		"branch_id":             1,
	}
	body, err := json.Marshal(payload)
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPut, "/api/update-member", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "success", resp["status"])
	assert.Equal(s.T(), "uploads/idcard/idcard-new.png", resp["foto_idcard"])
}

func (s *MemberHandlerSuite) TestUpdateNotFound() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil,
		derrors.New(derrors.CodeNotFound, "member not found"))

	payload := map[string]any{
		"name":                  "Budi Santoso",
		"retirement_number":     "01-9-311589-40",
		"old_retirement_number": "99-9-999999-99",
		"phone_number":          "081234567890",
		"birth_date":            "1958-03-14",
		"address":               "Jl. Merdeka 1",
		"city":                  "Bandung",
		"branch_id":             1,
	}
	body, err := json.Marshal(payload)
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPut, "/api/update-member", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "error", resp["status"])
	assert.Equal(s.T(), "member not found", resp["message"])
}

func (s *MemberHandlerSuite) TestInternalErrorCarriesDetail() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Enroll(gomock.Any(), gomock.Any()).Return(nil,
		derrors.New(derrors.CodePersistence, "failed to persist member"))

	req := httptest.NewRequest(http.MethodPost, "/api/kirim-member", bytes.NewReader(enrollmentBody(s.T())))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "error", resp["status"])
	assert.Equal(s.T(), "failed to persist member", resp["message"])
	assert.Equal(s.T(), "failed to persist member", resp["detail"])
}

func (s *MemberHandlerSuite) TestInternalErrorDetailIncludesCause() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Enroll(gomock.Any(), gomock.Any()).Return(nil,
		derrors.Wrap(derrors.CodePersistence, "failed to persist member",
			errors.New("pq: connection refused")))

	req := httptest.NewRequest(http.MethodPost, "/api/kirim-member", bytes.NewReader(enrollmentBody(s.T())))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "failed to persist member", resp["message"], "cause stays out of message")
	assert.Equal(s.T(), "failed to persist member: pq: connection refused", resp["detail"])
}

func (s *MemberHandlerSuite) TestClientErrorOmitsDetail() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Enroll(gomock.Any(), gomock.Any()).Return(nil,
		derrors.New(derrors.CodeDuplicate, "retirement number is already registered"))

	req := httptest.NewRequest(http.MethodPost, "/api/kirim-member", bytes.NewReader(enrollmentBody(s.T())))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(s.T(), resp, "detail")
}
