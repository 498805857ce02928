package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/audit"
	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/domain"
)

type fakeFaces struct {
	matches []domain.FaceMatch
	err     error
}

func (f *fakeFaces) Evaluate(_ context.Context, _ *camera.Frame) ([]domain.FaceMatch, error) {
	return f.matches, f.err
}

type fakePlates struct {
	match domain.PlateMatch
}

func (p *fakePlates) Evaluate(_ context.Context, _ *camera.Frame) domain.PlateMatch {
	return p.match
}

// fakeSink пишет порядок событий, чтобы проверять гарантию
// «first-grant не позже GRANTED-попытки».
type fakeSink struct {
	mu        sync.Mutex
	attempts  []audit.AttemptEvent
	grants    []audit.FirstGrant
	order     []string
	grantErr  error
	summaries []domain.SessionSummary
}

func (s *fakeSink) AppendAttempt(event audit.AttemptEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, event)
	s.order = append(s.order, fmt.Sprintf("attempt:%s", event.Decision))
}

func (s *fakeSink) AppendFirstGrant(_ context.Context, grant audit.FirstGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grantErr != nil {
		return s.grantErr
	}
	s.grants = append(s.grants, grant)
	s.order = append(s.order, fmt.Sprintf("grant:%d", grant.IdentityID))
	return nil
}

func (s *fakeSink) AppendSessionSummary(_ context.Context, summary domain.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
	return nil
}

type GateSuite struct {
	suite.Suite
	faces  *fakeFaces
	plates *fakePlates
	sink   *fakeSink
	gate   *Gate
	frame  *camera.Frame
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.faces = &fakeFaces{}
	s.plates = &fakePlates{}
	s.sink = &fakeSink{}

	tracker := NewTracker(zap.NewNop())
	s.gate = NewGate(s.faces, s.plates, tracker, s.sink, NewMetrics(nil), zap.NewNop())
	s.frame = camera.NewFrame("frame-1", []byte{0xff, 0xd8}, time.Now())
}

func (s *GateSuite) knownFace(id int64) {
	s.faces.matches = []domain.FaceMatch{{
		Status:     domain.FaceKnown,
		IdentityID: id,
		Distance:   40,
		Identity:   &domain.Identity{ID: id, Name: "Ivanov"},
	}}
}

func (s *GateSuite) TestFusion() {
	ctx := context.Background()

	s.Run("known face and registered plate is granted", func() {
		s.SetupTest()
		s.knownFace(7)
		s.plates.match = domain.PlateMatch{Plate: "AB123CD", Registered: true}
		sess := s.gate.StartSession(time.Minute)

		d, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
		s.Require().NoError(err)
		s.Equal(domain.DecisionGranted, d.Decision)
		s.Equal(domain.ReasonAllVerified, d.Reason)
		s.Equal("AB123CD", d.Plate)
		s.Require().NotNil(d.Identity)
		s.Equal(int64(7), d.Identity.ID)
	})

	s.Run("no face wins over everything", func() {
		s.SetupTest()
		s.plates.match = domain.PlateMatch{Plate: "AB123CD", Registered: true}
		sess := s.gate.StartSession(time.Minute)

		d, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
		s.Require().NoError(err)
		s.Equal(domain.DecisionDenied, d.Decision)
		s.Equal(domain.ReasonNoFaceDetected, d.Reason)
	})

	s.Run("unknown face denies even with registered plate", func() {
		s.SetupTest()
		s.faces.matches = []domain.FaceMatch{{Status: domain.FaceUnknown, Distance: 80}}
		s.plates.match = domain.PlateMatch{Plate: "AB123CD", Registered: true}
		sess := s.gate.StartSession(time.Minute)

		d, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
		s.Require().NoError(err)
		s.Equal(domain.DecisionDenied, d.Decision)
		s.Equal(domain.ReasonUnknownFace, d.Reason)
	})

	s.Run("known face without plate is denied", func() {
		s.SetupTest()
		s.knownFace(7)
		sess := s.gate.StartSession(time.Minute)

		d, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
		s.Require().NoError(err)
		s.Equal(domain.DecisionDenied, d.Decision)
		s.Equal(domain.ReasonNoPlateDetected, d.Reason)
		s.Nil(d.Identity)
	})

	s.Run("known face with unregistered plate is denied", func() {
		s.SetupTest()
		s.knownFace(7)
		s.plates.match = domain.PlateMatch{Plate: "XX999YY", Registered: false}
		sess := s.gate.StartSession(time.Minute)

		d, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
		s.Require().NoError(err)
		s.Equal(domain.DecisionDenied, d.Decision)
		s.Equal(domain.ReasonUnregisteredVehicle, d.Reason)
		s.Equal("XX999YY", d.Plate)
	})
}

func (s *GateSuite) TestEveryFrameIsLogged() {
	ctx := context.Background()
	sess := s.gate.StartSession(time.Minute)

	for i := 0; i < 3; i++ {
		_, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
		s.Require().NoError(err)
	}
	s.Len(s.sink.attempts, 3)
}

func (s *GateSuite) TestFirstGrantDeduplication() {
	ctx := context.Background()
	s.knownFace(7)
	s.plates.match = domain.PlateMatch{Plate: "AB123CD", Registered: true}
	sess := s.gate.StartSession(time.Minute)

	for i := 0; i < 3; i++ {
		d, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
		s.Require().NoError(err)
		s.Equal(domain.DecisionGranted, d.Decision)
	}

	// Три попытки в журнале, но first-grant один
	s.Len(s.sink.attempts, 3)
	s.Require().Len(s.sink.grants, 1)
	s.Equal(int64(7), s.sink.grants[0].IdentityID)
	s.Equal(sess.ID, s.sink.grants[0].SessionID)

	// Другая личность в той же сессии — своя first-grant запись
	s.knownFace(9)
	_, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
	s.Require().NoError(err)
	s.Len(s.sink.grants, 2)
}

func (s *GateSuite) TestFirstGrantPrecedesAttempt() {
	ctx := context.Background()
	s.knownFace(7)
	s.plates.match = domain.PlateMatch{Plate: "AB123CD", Registered: true}
	sess := s.gate.StartSession(time.Minute)

	_, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
	s.Require().NoError(err)

	s.Require().Len(s.sink.order, 2)
	s.Equal("grant:7", s.sink.order[0])
	s.Equal("attempt:GRANTED", s.sink.order[1])
}

func (s *GateSuite) TestGrantWriteFailureDoesNotBlockDecision() {
	ctx := context.Background()
	s.knownFace(7)
	s.plates.match = domain.PlateMatch{Plate: "AB123CD", Registered: true}
	s.sink.grantErr = errors.New("db down")
	sess := s.gate.StartSession(time.Minute)

	d, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
	s.Require().NoError(err)
	s.Equal(domain.DecisionGranted, d.Decision)
	s.Len(s.sink.attempts, 1)
}

func (s *GateSuite) TestFaceBackendFailureIsFailSafe() {
	ctx := context.Background()
	s.faces.err = errors.New("sidecar connection refused")
	s.plates.match = domain.PlateMatch{Plate: "AB123CD", Registered: true}
	sess := s.gate.StartSession(time.Minute)

	d, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
	s.Require().NoError(err)
	s.Equal(domain.DecisionDenied, d.Decision)
	s.Equal(domain.ReasonNoFaceDetected, d.Reason)
}

func (s *GateSuite) TestModelNotTrainedSurfaces() {
	ctx := context.Background()
	s.faces.err = domain.ErrModelNotTrained
	sess := s.gate.StartSession(time.Minute)

	_, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrModelNotTrained)
	// Фатальный сбой — попытка не фиксируется
	s.Empty(s.sink.attempts)
}

func (s *GateSuite) TestProcessFrameOutsideSession() {
	ctx := context.Background()

	_, err := s.gate.ProcessFrame(ctx, "no-such-session", s.frame)
	s.ErrorIs(err, domain.ErrSessionNotFound)
	s.Empty(s.sink.attempts)
}

func (s *GateSuite) TestEndSessionFlushesSummary() {
	ctx := context.Background()
	s.knownFace(7)
	s.plates.match = domain.PlateMatch{Plate: "AB123CD", Registered: true}
	sess := s.gate.StartSession(time.Minute)

	_, err := s.gate.ProcessFrame(ctx, sess.ID, s.frame)
	s.Require().NoError(err)

	summary, err := s.gate.EndSession(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), summary.FramesProcessed)
	s.Equal(1, summary.AdmittedCount)
	s.Require().Len(s.sink.summaries, 1)
	s.Equal(sess.ID, s.sink.summaries[0].SessionID)

	// Сессия закрыта — кадры больше не принимаются
	_, err = s.gate.ProcessFrame(ctx, sess.ID, s.frame)
	s.ErrorIs(err, domain.ErrSessionNotFound)
}
