// Package service implements the wordmask orchestrator that wires together
// configuration, the word store, the word set cache, change notifications
// and the redaction engine.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/go-ports/wordmask/internal/cache"
	"github.com/go-ports/wordmask/internal/config"
	"github.com/go-ports/wordmask/internal/db"
	"github.com/go-ports/wordmask/internal/models"
	"github.com/go-ports/wordmask/internal/notify"
	"github.com/go-ports/wordmask/internal/redaction"
)

const resubscribeDelay = 2 * time.Second

// Store is the word store used by the service.
type Store interface {
	cache.Source
	ListEntries(ctx context.Context) ([]models.Word, error)
	GetByID(ctx context.Context, id int64) (string, bool, error)
	Exists(ctx context.Context, word string) (bool, error)
	Create(ctx context.Context, word string) (int64, error)
	Update(ctx context.Context, id int64, word string) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Ping(ctx context.Context) bool
	Close() error
}

// Service orchestrates all wordmask operations. It is safe for concurrent use.
type Service struct {
	Config *config.Config
	Origin string

	store    Store
	cache    *cache.Cache
	logger   *zap.Logger
	validate *validator.Validate

	redis     *redis.Client
	publisher *notify.Publisher
	unpublish func()

	mu         sync.Mutex
	stopListen context.CancelFunc
	listenDone chan struct{}
}

// New opens the store described by cfg and returns a Service over it.
// When cfg.Notify.RedisAddr is set, local changes are published to Redis;
// call Listen to also receive changes made by other instances.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	origin := models.NewInstanceID()

	store, err := db.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, db.WithOrigin(origin))
	if err != nil {
		return nil, errors.Wrap(err, "service.New: open store")
	}

	s := newService(store, cfg, logger)
	s.Origin = origin

	if cfg.Notify.RedisAddr != "" {
		s.redis = notify.NewClient(cfg.Notify)
		s.publisher = notify.NewPublisher(s.redis, cfg.Notify.Channel, logger)
		s.unpublish = store.Subscribe(s.publisher.OnChange)
		logger.Info("change notifications enabled",
			zap.String("redis_addr", cfg.Notify.RedisAddr),
			zap.String("channel", cfg.Notify.Channel))
	}
	return s, nil
}

// newService builds a Service over an already opened store.
func newService(store Store, cfg *config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Config:   cfg,
		store:    store,
		cache:    cache.New(store, logger, cache.WithTTL(cfg.Cache.TTL)),
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Close stops listening, flushes pending notifications and releases the
// store.
func (s *Service) Close() error {
	s.mu.Lock()
	stop, done := s.stopListen, s.listenDone
	s.stopListen = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}

	s.cache.Close()
	if s.unpublish != nil {
		s.unpublish()
	}
	if s.publisher != nil {
		s.publisher.Wait()
	}
	var errs error
	if s.redis != nil {
		errs = errors.CombineErrors(errs, s.redis.Close())
	}
	return errors.CombineErrors(errs, s.store.Close())
}

// Listen starts receiving change notifications published by other
// instances until ctx is done or Close is called. It is a no-op when
// notifications are disabled or already running.
func (s *Service) Listen(ctx context.Context) {
	if s.redis == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopListen != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopListen, s.listenDone = cancel, done

	sub := notify.NewSubscriber(s.redis, s.Config.Notify.Channel, s.Origin, s.cache.OnChange, s.logger)
	go func() {
		defer close(done)
		for {
			err := sub.Run(ctx)
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("change notification subscription failed, retrying",
				zap.Error(err), zap.Duration("delay", resubscribeDelay))
			// Changes may have been missed while disconnected.
			s.cache.Invalidate()
			select {
			case <-ctx.Done():
				return
			case <-time.After(resubscribeDelay):
			}
		}
	}()
}

// ---------------------------------------------------------------------------
// Sanitize
// ---------------------------------------------------------------------------

// wordSet resolves the cached word set and rejects an empty one.
func (s *Service) wordSet(ctx context.Context) (*redaction.WordSet, error) {
	ws, err := s.cache.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if ws.Len() == 0 {
		s.logger.Warn("no sensitive words found in the repository")
		return nil, ErrNoWords
	}
	return ws, nil
}

// Sanitize masks every sensitive word in text.
func (s *Service) Sanitize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyInput
	}
	ws, err := s.wordSet(ctx)
	if err != nil {
		return "", errors.Wrap(err, "service.Sanitize")
	}
	out := ws.Sanitize(text)
	s.logger.Debug("sanitize request processed", zap.Int("length", len(text)))
	return out, nil
}

// SanitizeBatch masks every sensitive word in each of texts. The result has
// the same length and order as texts.
func (s *Service) SanitizeBatch(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	ws, err := s.wordSet(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "service.SanitizeBatch")
	}
	out, err := ws.SanitizeBatch(ctx, texts, s.Config.Batch.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "service.SanitizeBatch")
	}
	s.logger.Debug("sanitize batch request processed", zap.Int("items", len(texts)))
	return out, nil
}

// ---------------------------------------------------------------------------
// Word management
// ---------------------------------------------------------------------------

type wordInput struct {
	Word string `validate:"required,max=512"`
}

// validateWord rejects blank words and words over MaxWordLen.
func (s *Service) validateWord(word string) error {
	if strings.TrimSpace(word) == "" {
		return ErrEmptyWord
	}
	if err := s.validate.Struct(wordInput{Word: word}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
			return ErrWordTooLong
		}
		return errors.Wrapf(ErrInvalidWord, "validate word: %v", err)
	}
	return nil
}

func validateID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return nil
}

// ListWords returns every stored word, ordered by ID.
func (s *Service) ListWords(ctx context.Context) ([]string, error) {
	words, err := s.store.ListWords(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "service.ListWords")
	}
	return words, nil
}

// ListEntries returns every stored word with its ID.
func (s *Service) ListEntries(ctx context.Context) ([]models.Word, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "service.ListEntries")
	}
	return entries, nil
}

// GetWord returns the word stored under id.
func (s *Service) GetWord(ctx context.Context, id int64) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	word, found, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", errors.Wrap(err, "service.GetWord")
	}
	if !found {
		return "", ErrNotFound
	}
	return word, nil
}

// CreateWord stores word and returns its ID. The word is stored as given;
// uniqueness is an exact, case-sensitive match.
func (s *Service) CreateWord(ctx context.Context, word string) (int64, error) {
	if err := s.validateWord(word); err != nil {
		return 0, err
	}
	exists, err := s.store.Exists(ctx, word)
	if err != nil {
		return 0, errors.Wrap(err, "service.CreateWord")
	}
	if exists {
		return 0, ErrWordExists
	}
	id, err := s.store.Create(ctx, word)
	if errors.Is(err, db.ErrDuplicate) {
		return 0, ErrWordExists
	}
	if err != nil {
		return 0, errors.Wrap(err, "service.CreateWord")
	}
	s.logger.Info("sensitive word created", zap.Int64("id", id))
	return id, nil
}

// UpdateWord replaces the word stored under id and returns the number of
// rows affected.
func (s *Service) UpdateWord(ctx context.Context, id int64, word string) (int64, error) {
	if err := validateID(id); err != nil {
		return 0, err
	}
	if err := s.validateWord(word); err != nil {
		return 0, err
	}
	_, found, err := s.store.GetByID(ctx, id)
	if err != nil {
		return 0, errors.Wrap(err, "service.UpdateWord")
	}
	if !found {
		return 0, ErrNotFound
	}
	n, err := s.store.Update(ctx, id, word)
	if errors.Is(err, db.ErrDuplicate) {
		return 0, ErrWordExists
	}
	if err != nil {
		return 0, errors.Wrap(err, "service.UpdateWord")
	}
	s.logger.Info("sensitive word updated", zap.Int64("id", id), zap.Int64("affected", n))
	return n, nil
}

// DeleteWord removes the word stored under id. It returns ErrNotFound when
// nothing was removed.
func (s *Service) DeleteWord(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}
	_, found, err := s.store.GetByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "service.DeleteWord")
	}
	if !found {
		return ErrNotFound
	}
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return errors.Wrap(err, "service.DeleteWord")
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Info("sensitive word deleted", zap.Int64("id", id))
	return nil
}

// ---------------------------------------------------------------------------
// Import
// ---------------------------------------------------------------------------

// ImportResult summarises an Import call.
type ImportResult struct {
	Added    int `json:"added"`
	Existing int `json:"existing"`
	Invalid  int `json:"invalid"`
}

// Import stores each of words that is valid and not already stored.
// progress is called with (current, total) after each word; may be nil.
func (s *Service) Import(ctx context.Context, words []string, progress func(current, total int)) (*ImportResult, error) {
	res := &ImportResult{}
	total := len(words)
	for i, w := range words {
		_, err := s.CreateWord(ctx, w)
		switch {
		case err == nil:
			res.Added++
		case errors.Is(err, ErrWordExists):
			res.Existing++
		case IsInvalidWord(err):
			s.logger.Warn("skipping invalid word", zap.Int("line", i+1), zap.Error(err))
			res.Invalid++
		default:
			return res, errors.Wrap(err, "service.Import")
		}
		if progress != nil {
			progress(i+1, total)
		}
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Health is the service health report.
type Health struct {
	Status string      `json:"status"`
	Store  bool        `json:"store"`
	Cache  cache.Stats `json:"cache"`
}

// Health pings the store and reports cache statistics.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{
		Status: "ok",
		Store:  s.store.Ping(ctx),
		Cache:  s.cache.Stats(),
	}
	if !h.Store {
		h.Status = "unavailable"
	}
	return h
}

// CacheStats returns a snapshot of the word set cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}
