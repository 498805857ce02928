package face

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/camera"
	"github.com/xela07ax/integra-gate/internal/domain"
)

type stubDetector struct {
	regions []Region
	err     error
}

func (d *stubDetector) DetectFaces(_ context.Context, _ *camera.Frame) ([]Region, error) {
	return d.regions, d.err
}

type stubMatcher struct {
	identityID int64
	distance   float64
	err        error
}

func (m *stubMatcher) MatchFace(_ context.Context, _ *camera.Frame, _ Region) (int64, float64, error) {
	return m.identityID, m.distance, m.err
}

type stubDirectory struct {
	identities map[int64]*domain.Identity
}

func (d *stubDirectory) GetIdentity(_ context.Context, id int64) (*domain.Identity, error) {
	if identity, ok := d.identities[id]; ok {
		return identity, nil
	}
	return nil, domain.ErrIdentityNotFound
}

type recordingSink struct {
	crops [][]byte
	err   error
}

func (s *recordingSink) Capture(_ context.Context, crop []byte) error {
	s.crops = append(s.crops, crop)
	return s.err
}

type FaceVerifierSuite struct {
	suite.Suite
	detector *stubDetector
	matcher  *stubMatcher
	dir      *stubDirectory
	sink     *recordingSink
	frame    *camera.Frame
}

func TestFaceVerifierSuite(t *testing.T) {
	suite.Run(t, new(FaceVerifierSuite))
}

func (s *FaceVerifierSuite) SetupTest() {
	s.detector = &stubDetector{regions: []Region{{X: 1, Y: 2, W: 10, H: 10, Crop: []byte("crop")}}}
	s.matcher = &stubMatcher{}
	s.dir = &stubDirectory{identities: map[int64]*domain.Identity{
		7: {ID: 7, Name: "Ivanov", ExternalID: "P-100"},
	}}
	s.sink = &recordingSink{}
	s.frame = camera.NewFrame("frame-1", []byte{0xff, 0xd8}, time.Now())
}

func (s *FaceVerifierSuite) newVerifier() *Verifier {
	return NewVerifier(s.detector, s.matcher, s.dir, s.sink, 50.0, 75.0, zap.NewNop())
}

func (s *FaceVerifierSuite) TestThresholdPolicy() {
	ctx := context.Background()

	s.Run("distance below confidence threshold is known", func() {
		s.matcher.identityID, s.matcher.distance = 7, 40.0

		results, err := s.newVerifier().Evaluate(ctx, s.frame)
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.Equal(domain.FaceKnown, results[0].Status)
		s.Equal(int64(7), results[0].IdentityID)
		s.Require().NotNil(results[0].Identity)
		s.Equal("Ivanov", results[0].Identity.Name)
		s.Empty(s.sink.crops)
	})

	s.Run("distance equal to confidence threshold stays unknown", func() {
		s.matcher.identityID, s.matcher.distance = 7, 50.0

		results, err := s.newVerifier().Evaluate(ctx, s.frame)
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.Equal(domain.FaceUnknown, results[0].Status)
		s.Nil(results[0].Identity)
		s.Empty(s.sink.crops)
	})

	s.Run("distance equal to poor match threshold is not captured", func() {
		s.matcher.distance = 75.0

		results, err := s.newVerifier().Evaluate(ctx, s.frame)
		s.Require().NoError(err)
		s.Equal(domain.FaceUnknown, results[0].Status)
		s.Empty(s.sink.crops)
	})

	s.Run("distance above poor match threshold captures the crop", func() {
		s.matcher.distance = 75.1

		results, err := s.newVerifier().Evaluate(ctx, s.frame)
		s.Require().NoError(err)
		s.Equal(domain.FaceUnknown, results[0].Status)
		s.Require().Len(s.sink.crops, 1)
		s.Equal([]byte("crop"), s.sink.crops[0])
	})
}

func (s *FaceVerifierSuite) TestDirectoryMissDowngradesToUnknown() {
	// Модель знает метку 99, справочника запись не имеет
	s.matcher.identityID, s.matcher.distance = 99, 30.0

	results, err := s.newVerifier().Evaluate(context.Background(), s.frame)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal(domain.FaceUnknown, results[0].Status)
	s.Nil(results[0].Identity)
}

func (s *FaceVerifierSuite) TestSinkFailureDoesNotChangeVerdict() {
	s.matcher.distance = 90.0
	s.sink.err = errors.New("disk full")

	results, err := s.newVerifier().Evaluate(context.Background(), s.frame)
	s.Require().NoError(err)
	s.Equal(domain.FaceUnknown, results[0].Status)
}

func (s *FaceVerifierSuite) TestModelNotTrainedSurfaces() {
	s.matcher.err = domain.ErrModelNotTrained

	_, err := s.newVerifier().Evaluate(context.Background(), s.frame)
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrModelNotTrained)
}

func (s *FaceVerifierSuite) TestDetectorErrorSurfaces() {
	s.detector.err = errors.New("sidecar down")

	_, err := s.newVerifier().Evaluate(context.Background(), s.frame)
	s.Error(err)
}

func (s *FaceVerifierSuite) TestEmptyFrame() {
	s.detector.regions = nil

	results, err := s.newVerifier().Evaluate(context.Background(), s.frame)
	s.Require().NoError(err)
	s.Empty(results)
}

func TestFold(t *testing.T) {
	known := domain.FaceMatch{Status: domain.FaceKnown, IdentityID: 3}
	unknownA := domain.FaceMatch{Status: domain.FaceUnknown, Distance: 60}
	unknownB := domain.FaceMatch{Status: domain.FaceUnknown, Distance: 80}

	t.Run("empty list folds to no face", func(t *testing.T) {
		if got := Fold(nil); got.Status != domain.FaceNone {
			t.Fatalf("expected NO_FACE, got %v", got.Status)
		}
	})

	t.Run("first known wins", func(t *testing.T) {
		got := Fold([]domain.FaceMatch{unknownA, known, unknownB})
		if got.Status != domain.FaceKnown || got.IdentityID != 3 {
			t.Fatalf("expected known identity 3, got %+v", got)
		}
	})

	t.Run("all unknown folds to first", func(t *testing.T) {
		got := Fold([]domain.FaceMatch{unknownA, unknownB})
		if got.Status != domain.FaceUnknown || got.Distance != 60 {
			t.Fatalf("expected first unknown, got %+v", got)
		}
	})
}
