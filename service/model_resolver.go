package service

import (
	"helios-backend/models"

	"go.uber.org/zap"
)

// DefaultSizeThreshold is the file size above which the fast model is used.
const DefaultSizeThreshold int64 = 5 << 20

// ModelResolver picks the model tier for a submission. It holds read-only
// configuration and is safe for concurrent use.
type ModelResolver struct {
	StandardModel string
	FastModel     string
	SizeThreshold int64
	log           *zap.Logger
}

// NewModelResolver creates a resolver. A non-positive threshold falls back to
// DefaultSizeThreshold.
func NewModelResolver(standardModel, fastModel string, sizeThreshold int64, log *zap.Logger) *ModelResolver {
	if sizeThreshold <= 0 {
		sizeThreshold = DefaultSizeThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelResolver{
		StandardModel: standardModel,
		FastModel:     fastModel,
		SizeThreshold: sizeThreshold,
		log:           log,
	}
}

// SelectModel returns the fast model for files above the size threshold and
// the standard model otherwise.
func (r *ModelResolver) SelectModel(fileSize int64) string {
	model := r.StandardModel
	if fileSize > r.SizeThreshold {
		model = r.FastModel
	}
	r.log.Debug("model.selected",
		zap.Int64("file_size", fileSize),
		zap.Int64("threshold", r.SizeThreshold),
		zap.String("model", model),
	)
	return model
}

// ForPlan applies an already-resolved plan tier before the size rule. Free
// plans always get the fast model.
func (r *ModelResolver) ForPlan(plan models.PlanTier, fileSize int64) string {
	if plan == models.PlanFree {
		return r.FastModel
	}
	return r.SelectModel(fileSize)
}
