// Package service orchestrates enrollment: validate, allocate a card number,
// render and store the card image, persist the member, then deliver the card
// over the messaging channel. Persistence is the point of no return; anything
// failing before it aborts the request, while a delivery failure after it only
// downgrades the outcome to a warning.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"himpana/internal/audit"
	"himpana/internal/delivery"
	"himpana/internal/guard"
	"himpana/internal/idcard"
	"himpana/internal/member"
	"himpana/internal/platform/metrics"
	derrors "himpana/pkg/domain-errors"
	"himpana/pkg/requestcontext"
	"himpana/pkg/sentinel"
)

// maxIssueAttempts bounds re-allocation when an INSERT loses the card number
// race to a concurrent enrollment in the same branch.
const maxIssueAttempts = 3

// CardAllocator proposes the next card number for a branch.
type CardAllocator interface {
	Allocate(ctx context.Context, branchID int64) (string, error)
}

// ImageStorage persists rendered card images. *idcard.Storage satisfies it.
type ImageStorage interface {
	Save(img []byte) (string, error)
	Remove(path string) error
}

type Service struct {
	members     member.Store
	allocator   CardAllocator
	renderer    idcard.Renderer
	images      ImageStorage
	sender      delivery.Sender
	guard       *guard.Guard
	audit       *audit.Recorder
	metrics     *metrics.Metrics
	logger      *slog.Logger
	countryCode string
}

// Deps collects the orchestrator's collaborators. Guard, Audit, Metrics and
// Sender may be nil; the service degrades rather than failing to start.
type Deps struct {
	Members     member.Store
	Allocator   CardAllocator
	Renderer    idcard.Renderer
	Images      ImageStorage
	Sender      delivery.Sender
	Guard       *guard.Guard
	Audit       *audit.Recorder
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	CountryCode string
}

func New(d Deps) *Service {
	return &Service{
		members:     d.Members,
		allocator:   d.Allocator,
		renderer:    d.Renderer,
		images:      d.Images,
		sender:      d.Sender,
		guard:       d.Guard,
		audit:       d.Audit,
		metrics:     d.Metrics,
		logger:      d.Logger,
		countryCode: d.CountryCode,
	}
}

// Enroll runs the full pipeline for a new member. On success the member is
// persisted with a fresh card number and the card image is on its way to the
// member's phone; a delivery failure still returns the persisted member, with
// Status downgraded to warning.
func (s *Service) Enroll(ctx context.Context, req member.EnrollmentRequest) (*member.Result, error) {
	if err := member.ValidateEnrollment(req); err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, req.RetirementNumber)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.members.FindByRetirementNumber(ctx, req.RetirementNumber); err == nil {
		return nil, derrors.New(derrors.CodeDuplicate, "retirement number is already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.Wrap(derrors.CodePersistence, "failed to check retirement number", err)
	}

	// Timestamps come from the request context so the middleware-stamped time
	// is what lands on the row.
	now := requestcontext.Now(ctx).UTC()
	m := &member.Member{
		ID:               uuid.New(),
		Name:             req.Name,
		RetirementNumber: req.RetirementNumber,
		PhoneNumber:      req.PhoneNumber,
		BirthDate:        req.BirthDate,
		Address:          req.Address,
		City:             req.City,
		BranchID:         req.BranchID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	img, err := s.issueCard(ctx, m, s.members.Insert)
	if err != nil {
		s.metrics.IncEnrollment("error")
		return nil, err
	}

	s.logger.InfoContext(ctx, "member enrolled",
		"member_id", m.ID.String(),
		"retirement_number", m.RetirementNumber,
		"card_number", m.CardNumber,
		"branch_id", m.BranchID,
	)
	s.emit(ctx, audit.EventMemberEnrolled, m, "")

	result := s.deliver(ctx, m, img)
	s.metrics.IncEnrollment(string(result.Status))
	return result, nil
}

// Update re-issues a member's card. The record is keyed by the retirement
// number it was enrolled under; the card number is re-allocated because the
// branch, and with it the numbering namespace, may have changed. The previous
// image is removed only after the row update commits.
func (s *Service) Update(ctx context.Context, req member.UpdateRequest) (*member.Result, error) {
	if err := member.ValidateUpdate(req); err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, req.OldRetirementNumber)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.members.FindByRetirementNumber(ctx, req.OldRetirementNumber)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.New(derrors.CodeNotFound, "member not found")
	}
	if err != nil {
		return nil, derrors.Wrap(derrors.CodePersistence, "failed to load member", err)
	}

	if req.RetirementNumber != req.OldRetirementNumber {
		if _, err := s.members.FindByRetirementNumber(ctx, req.RetirementNumber); err == nil {
			return nil, derrors.New(derrors.CodeDuplicate, "retirement number is already registered")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, derrors.Wrap(derrors.CodePersistence, "failed to check retirement number", err)
		}
	}

	var oldImage string
	if existing.CardImagePath != nil {
		oldImage = *existing.CardImagePath
	}

	m := &member.Member{
		ID:               existing.ID,
		Name:             req.Name,
		RetirementNumber: req.RetirementNumber,
		PhoneNumber:      req.PhoneNumber,
		BirthDate:        req.BirthDate,
		Address:          req.Address,
		City:             req.City,
		BranchID:         req.BranchID,
		CreatedAt:        existing.CreatedAt,
		UpdatedAt:        requestcontext.Now(ctx).UTC(),
	}

	img, err := s.issueCard(ctx, m, s.members.Update)
	if err != nil {
		s.metrics.IncEnrollment("error")
		return nil, err
	}

	if err := s.images.Remove(oldImage); err != nil {
		s.logger.WarnContext(ctx, "failed to remove superseded card image",
			"path", oldImage,
			"error", err.Error(),
		)
	}

	s.logger.InfoContext(ctx, "member updated",
		"member_id", m.ID.String(),
		"retirement_number", m.RetirementNumber,
		"card_number", m.CardNumber,
		"branch_id", m.BranchID,
	)
	s.emit(ctx, audit.EventMemberUpdated, m, "")

	result := s.deliver(ctx, m, img)
	s.metrics.IncEnrollment(string(result.Status))
	return result, nil
}

// issueCard allocates, renders, stores and persists. When persist loses the
// card number race it cleans up the orphaned image and re-allocates; any other
// failure cleans up and aborts. On success m carries the final card number and
// image path.
func (s *Service) issueCard(ctx context.Context, m *member.Member, persist func(context.Context, *member.Member) error) ([]byte, error) {
	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		cardNumber, err := s.allocator.Allocate(ctx, m.BranchID)
		if err != nil {
			return nil, err
		}
		m.CardNumber = cardNumber

		img, err := s.renderer.Render(ctx, idcard.CardData{
			Name:             m.Name,
			RetirementNumber: m.RetirementNumber,
			CardNumber:       m.CardNumber,
			BirthDate:        m.BirthDate,
			City:             m.City,
		})
		if err != nil {
			return nil, derrors.Wrap(derrors.CodeRender, "failed to render card image", err)
		}

		path, err := s.images.Save(img)
		if err != nil {
			return nil, derrors.Wrap(derrors.CodePersistence, "failed to store card image", err)
		}
		m.CardImagePath = &path

		err = persist(ctx, m)
		switch {
		case err == nil:
			return img, nil

		case errors.Is(err, sentinel.ErrDuplicateCardNumber):
			s.cleanupImage(ctx, path)
			s.metrics.IncAllocationRetry()
			s.logger.WarnContext(ctx, "card number raced, re-allocating",
				"card_number", m.CardNumber,
				"attempt", attempt,
			)

		case errors.Is(err, sentinel.ErrDuplicateRetirementNumber):
			s.cleanupImage(ctx, path)
			return nil, derrors.New(derrors.CodeDuplicate, "retirement number is already registered")

		case errors.Is(err, sentinel.ErrNotFound):
			s.cleanupImage(ctx, path)
			return nil, derrors.New(derrors.CodeNotFound, "member not found")

		default:
			s.cleanupImage(ctx, path)
			return nil, derrors.Wrap(derrors.CodePersistence, "failed to persist member", err)
		}
	}

	return nil, derrors.Newf(derrors.CodeAllocation, "card number contention persisted after %d attempts", maxIssueAttempts)
}

func (s *Service) cleanupImage(ctx context.Context, path string) {
	if err := s.images.Remove(path); err != nil {
		s.logger.WarnContext(ctx, "failed to remove orphaned card image",
			"path", path,
			"error", err.Error(),
		)
	}
}

// deliver pushes the rendered card to the member's phone. Failures never roll
// anything back; they downgrade the result to a warning the caller reports.
func (s *Service) deliver(ctx context.Context, m *member.Member, img []byte) *member.Result {
	recipient := delivery.FormatRecipient(m.PhoneNumber, s.countryCode)
	if recipient == "" {
		s.metrics.IncDelivery("skipped")
		s.emit(ctx, audit.EventCardDeliveryFailed, m, "phone number has no digits")
		return &member.Result{
			Status:  member.StatusWarning,
			Member:  m,
			Message: "member saved, but the phone number is not deliverable",
		}
	}

	if s.sender == nil {
		s.metrics.IncDelivery("skipped")
		s.emit(ctx, audit.EventCardDeliveryFailed, m, "delivery channel not configured")
		return &member.Result{
			Status:  member.StatusWarning,
			Member:  m,
			Message: "member saved, but card delivery is not configured",
		}
	}

	caption := fmt.Sprintf("Kartu anggota HIMPANA untuk %s (%s)", m.Name, m.CardNumber)
	if err := s.sender.Send(ctx, recipient, img, caption); err != nil {
		s.metrics.IncDelivery("failed")
		s.logger.WarnContext(ctx, "card delivery failed",
			"member_id", m.ID.String(),
			"recipient", recipient,
			"error", err.Error(),
		)
		s.emit(ctx, audit.EventCardDeliveryFailed, m, derrors.MessageOf(err))
		return &member.Result{
			Status:  member.StatusWarning,
			Member:  m,
			Message: "member saved, but the card could not be delivered",
		}
	}

	s.metrics.IncDelivery("delivered")
	s.emit(ctx, audit.EventCardDelivered, m, "")
	return &member.Result{Status: member.StatusSuccess, Member: m}
}

func (s *Service) emit(ctx context.Context, typ audit.EventType, m *member.Member, reason string) {
	s.audit.Emit(ctx, audit.Event{
		Type:             typ,
		RequestID:        requestcontext.RequestID(ctx),
		MemberID:         m.ID.String(),
		RetirementNumber: m.RetirementNumber,
		CardNumber:       m.CardNumber,
		BranchID:         m.BranchID,
		Reason:           reason,
	})
}
