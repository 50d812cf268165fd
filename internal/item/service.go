package item

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/barangku/service/internal/auth"
	"github.com/barangku/service/internal/metrics"
	"github.com/barangku/service/internal/storage"
)

const imageKeyAttempts = 10

// Options is the item configuration passed at construction time.
type Options struct {
	// AllowedImageExtensions lists accepted image extensions, without dots.
	AllowedImageExtensions []string
	// MaxUploadBytes caps the request body of create and update.
	MaxUploadBytes int64
}

// Image is an uploaded image attachment.
type Image struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Service contains the business logic for items: ownership checks,
// validation and the image lifecycle.
type Service struct {
	repo  Repository
	store storage.Storage
	opts  Options
	now   func() time.Time
}

// NewService creates a new item Service.
func NewService(repo Repository, store storage.Storage, opts Options) *Service {
	return &Service{repo: repo, store: store, opts: opts, now: time.Now}
}

// List returns every item for an admin and the caller's own items otherwise.
func (s *Service) List(ctx context.Context, id auth.Identity) ([]Item, error) {
	if id.Admin {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListByOwner(ctx, id.Subject)
}

// Get returns the item if id may access it.
func (s *Service) Get(ctx context.Context, id auth.Identity, itemID int64) (*Item, error) {
	return s.authorize(ctx, id, itemID)
}

// Create validates form and the optional image, stores the image and inserts
// a new item owned by id. It returns the generated item id.
func (s *Service) Create(ctx context.Context, id auth.Identity, form Form, img *Image) (int64, error) {
	fields, err := form.Fields()
	if err != nil {
		return 0, err
	}
	if utf8.RuneCountInString(id.Subject) > MaxTextLength {
		return 0, fmt.Errorf("%w: identity longer than %d characters", ErrInvalidInput, MaxTextLength)
	}

	it := &Item{
		OwnerID:  id.Subject,
		Name:     fields.Name,
		Category: fields.Category,
		Quantity: fields.Quantity,
	}

	if img != nil {
		ext, err := ImageExtension(img.Filename, s.opts.AllowedImageExtensions)
		if err != nil {
			return 0, err
		}
		key, err := s.storeImage(ctx, id.Subject, ext, img)
		if err != nil {
			return 0, err
		}
		metrics.ImagesStored.Inc()
		it.ImagePath = &key
	}

	if err := s.repo.Create(ctx, it); err != nil {
		if it.ImagePath != nil {
			// the row never existed, so the file would be unreachable
			if derr := s.store.Delete(ctx, *it.ImagePath); derr != nil {
				log.Warn().Err(derr).Str("key", *it.ImagePath).Msg("remove image of failed create")
			}
		}
		return 0, fmt.Errorf("create item: %w", err)
	}

	metrics.ItemOperations.WithLabelValues("create").Inc()
	return it.ID, nil
}

// Update replaces name, category and quantity of an item id may access.
// The owner and image are left unchanged.
func (s *Service) Update(ctx context.Context, id auth.Identity, itemID int64, form Form) error {
	it, err := s.authorize(ctx, id, itemID)
	if err != nil {
		return err
	}

	fields, err := form.Fields()
	if err != nil {
		return err
	}

	it.Name = fields.Name
	it.Category = fields.Category
	it.Quantity = fields.Quantity
	if err := s.repo.Update(ctx, it); err != nil {
		return fmt.Errorf("update item %d: %w", itemID, err)
	}

	metrics.ItemOperations.WithLabelValues("update").Inc()
	return nil
}

// Delete removes an item id may access. The image key is queued in the same
// transaction as the row delete and then removed right away; if removal
// fails the key stays queued for the Sweeper.
func (s *Service) Delete(ctx context.Context, id auth.Identity, itemID int64) error {
	it, err := s.authorize(ctx, id, itemID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("delete item %d: %w", itemID, err)
	}
	metrics.ItemOperations.WithLabelValues("delete").Inc()

	if it.ImagePath != nil && *it.ImagePath != "" {
		if err := removeImage(ctx, s.repo, s.store, *it.ImagePath); err != nil {
			log.Warn().Err(err).Str("key", *it.ImagePath).Int64("item_id", itemID).
				Msg("image removal deferred to sweeper")
		}
	}
	return nil
}

// storeImage uploads img under a fresh key. When the timestamped key is
// already taken, a numeric suffix is tried before giving up.
func (s *Service) storeImage(ctx context.Context, owner, ext string, img *Image) (string, error) {
	base := ImageKey(owner, ext, s.now())
	key := base
	for attempt := 1; ; attempt++ {
		err := s.store.Upload(ctx, key, img.Body, img.Size, img.ContentType)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, storage.ErrExists) || attempt >= imageKeyAttempts {
			return "", fmt.Errorf("store image: %w", err)
		}
		key = strings.TrimSuffix(base, "."+ext) + "_" + strconv.Itoa(attempt) + "." + ext
	}
}

func (s *Service) authorize(ctx context.Context, id auth.Identity, itemID int64) (*Item, error) {
	it, err := s.repo.GetByID(ctx, itemID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", itemID, err)
	}
	if !id.CanAccess(it.OwnerID) {
		return nil, ErrForbidden
	}
	return it, nil
}
