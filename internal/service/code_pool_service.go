package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-assign-api/internal/models"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
)

type codePoolRepository interface {
	Replace(ctx context.Context, pools models.CodePools) error
}

// CodePoolService owns the four configured pools and derives the codes still available.
type CodePoolService struct {
	repo     codePoolRepository
	store    *SnapshotStore
	notifier changeNotifier
	logger   *zap.Logger
}

// NewCodePoolService constructs a CodePoolService.
func NewCodePoolService(repo codePoolRepository, store *SnapshotStore, feed ChangePublisher, logger *zap.Logger) *CodePoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CodePoolService{
		repo:     repo,
		store:    store,
		notifier: changeNotifier{feed: feed, logger: logger},
		logger:   logger,
	}
}

// ParseSetup turns the comma separated setup fields into pools. Entries are trimmed,
// blanks and repeats dropped; exam counts that are not positive integers are dropped.
func ParseSetup(req models.SetupRequest) (models.CodePools, error) {
	pools := models.CodePools{
		SubjectCodes: splitList(req.SubjectCodes),
		Shifts:       splitList(req.Shifts),
		PacketCodes:  splitList(req.PacketCodes),
	}

	seen := map[int]struct{}{}
	pools.TotalExamsOptions = []int{}
	for _, entry := range splitList(req.TotalExamsOptions) {
		n, err := strconv.Atoi(entry)
		if err != nil || n <= 0 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		pools.TotalExamsOptions = append(pools.TotalExamsOptions, n)
	}

	if len(pools.SubjectCodes) == 0 || len(pools.Shifts) == 0 || len(pools.PacketCodes) == 0 || len(pools.TotalExamsOptions) == 0 {
		return models.CodePools{}, appErrors.Clone(appErrors.ErrValidation, "all setup fields must contain at least one valid entry")
	}
	return pools, nil
}

// SetPools replaces all four pools at once.
func (s *CodePoolService) SetPools(ctx context.Context, req models.SetupRequest) (models.CodePools, error) {
	pools, err := ParseSetup(req)
	if err != nil {
		return models.CodePools{}, err
	}
	if err := s.repo.Replace(ctx, pools); err != nil {
		return models.CodePools{}, appErrors.Backend(err, "failed to save setup")
	}

	s.store.ReplacePools(pools)
	s.notifier.notify(ctx, models.PoolCollections...)
	s.logger.Info("code pools replaced",
		zap.Int("subject_codes", len(pools.SubjectCodes)),
		zap.Int("packet_codes", len(pools.PacketCodes)),
	)
	return pools, nil
}

// Pools returns the configured pools.
func (s *CodePoolService) Pools(_ context.Context) models.CodePools {
	return s.store.Current().Pools
}

// AvailableSubjectCodes lists pool subject codes not used by any assignment, in pool order.
func (s *CodePoolService) AvailableSubjectCodes(_ context.Context) []string {
	snapshot := s.store.Current()
	return availableCodes(snapshot.Pools.SubjectCodes, func(a models.Assignment) string { return a.SubjectCode }, snapshot.Assignments)
}

// AvailablePacketCodes lists pool packet codes not used by any assignment, in pool order.
func (s *CodePoolService) AvailablePacketCodes(_ context.Context) []string {
	snapshot := s.store.Current()
	return availableCodes(snapshot.Pools.PacketCodes, func(a models.Assignment) string { return a.PacketCode }, snapshot.Assignments)
}

// FormOptions bundles the choices an assignment form offers, all from one snapshot.
func (s *CodePoolService) FormOptions(_ context.Context) models.FormOptions {
	snapshot := s.store.Current()
	return models.FormOptions{
		Teachers:              snapshot.Teachers,
		AvailableSubjectCodes: availableCodes(snapshot.Pools.SubjectCodes, func(a models.Assignment) string { return a.SubjectCode }, snapshot.Assignments),
		Shifts:                snapshot.Pools.Shifts,
		AvailablePacketCodes:  availableCodes(snapshot.Pools.PacketCodes, func(a models.Assignment) string { return a.PacketCode }, snapshot.Assignments),
		TotalExamsOptions:     snapshot.Pools.TotalExamsOptions,
	}
}

func splitList(raw string) []string {
	seen := map[string]struct{}{}
	values := []string{}
	for _, part := range strings.Split(raw, ",") {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}
