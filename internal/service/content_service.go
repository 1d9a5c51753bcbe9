package service

import (
	"context"
	"errors"
	"time"

	"contentgate/api/internal/config"
	"contentgate/api/internal/entitlement"
	"contentgate/api/internal/models"
	"contentgate/api/internal/repository"
)

type Presigner interface {
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type ContentService struct {
	content  repository.ContentStore
	resolver *entitlement.Resolver
	files    Presigner
	cfg      config.ContentConfig
}

func NewContentService(content repository.ContentStore, resolver *entitlement.Resolver, files Presigner, cfg config.ContentConfig) *ContentService {
	if cfg.PreviewRunes <= 0 {
		cfg.PreviewRunes = entitlement.DefaultPreviewRunes
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = 15 * time.Minute
	}
	return &ContentService{content: content, resolver: resolver, files: files, cfg: cfg}
}

// ContentView is an item as a particular caller is allowed to see it.
type ContentView struct {
	Item      models.ContentItem
	Body      string
	HasAccess bool
	Reason    entitlement.Reason
}

func (s *ContentService) Get(ctx context.Context, principal *models.Principal, id string) (ContentView, error) {
	item, decision, err := s.resolve(ctx, principal, id)
	if err != nil {
		return ContentView{}, err
	}

	return ContentView{
		Item:      item,
		Body:      entitlement.Redact(item, decision, s.cfg.PreviewRunes),
		HasAccess: decision.Granted,
		Reason:    decision.Reason,
	}, nil
}

// DownloadURL returns a short-lived link to a resource file the caller is entitled to.
func (s *ContentService) DownloadURL(ctx context.Context, principal *models.Principal, id string) (string, time.Time, error) {
	item, decision, err := s.resolve(ctx, principal, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if item.Kind != models.ContentKindResource || item.FileKey == nil || *item.FileKey == "" {
		return "", time.Time{}, ErrNotDownloadable
	}
	if !decision.Granted {
		return "", time.Time{}, ErrEntitlementRequired
	}

	expiresAt := time.Now().Add(s.cfg.DownloadTTL)
	link, err := s.files.PresignDownload(ctx, *item.FileKey, s.cfg.DownloadTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return link, expiresAt, nil
}

func (s *ContentService) resolve(ctx context.Context, principal *models.Principal, id string) (models.ContentItem, entitlement.Decision, error) {
	item, err := s.content.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.ContentItem{}, entitlement.Decision{}, ErrContentNotFound
		}
		return models.ContentItem{}, entitlement.Decision{}, err
	}
	if !item.Published && !principal.IsAdmin() {
		return models.ContentItem{}, entitlement.Decision{}, ErrContentNotFound
	}

	decision, err := s.resolver.Resolve(ctx, principal, item)
	if err != nil {
		return models.ContentItem{}, entitlement.Decision{}, err
	}
	return item, decision, nil
}
