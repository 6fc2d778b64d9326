package usecase

import (
	"go.uber.org/zap"

	"camclip/internal/domain"
	"camclip/internal/ports"
)

// assetPublisher keeps at most one published reference alive.
type assetPublisher struct {
	store  ports.AssetStore
	logger *zap.Logger
	ref    domain.AssetRef
}

func newAssetPublisher(store ports.AssetStore, logger *zap.Logger) *assetPublisher {
	return &assetPublisher{store: store, logger: logger}
}

// Publish allocates a fresh reference for asset and revokes the previous one.
func (p *assetPublisher) Publish(asset domain.Asset) (domain.AssetRef, error) {
	ref, err := p.store.Publish(asset)
	if err != nil {
		return "", err
	}
	p.Release()
	p.ref = ref
	p.logger.Debug("asset published",
		zap.String("ref", string(ref)),
		zap.String("mime_type", asset.MIMEType),
		zap.Int64("bytes", asset.Size()),
	)
	return ref, nil
}

// Release revokes the current reference, if any.
func (p *assetPublisher) Release() {
	if p.ref == "" {
		return
	}
	p.store.Revoke(p.ref)
	p.logger.Debug("asset revoked", zap.String("ref", string(p.ref)))
	p.ref = ""
}

func (p *assetPublisher) Current() domain.AssetRef {
	return p.ref
}
