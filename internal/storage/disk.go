package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"tutor-backend/internal/model"
	"tutor-backend/pkg/logger"

	"github.com/google/uuid"
)

// DiskStorage keeps every session in its own JSON file and writes through on
// each mutation. A bounded in-memory cache serves reads.
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.Session
	cacheSize int
	now       func() time.Time
}

// sessionRecord is the on-disk form of a session. It carries the message
// sequence that the API representation leaves out.
type sessionRecord struct {
	*model.Session
	NextMessageSeq int64 `json:"nextMessageSeq"`
}

type SessionIndex struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	if cacheSize <= 0 {
		cacheSize = 100
	}
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.Session),
		cacheSize: cacheSize,
		now:       time.Now,
	}
}

func (d *DiskStorage) Init() error {
	if err := os.MkdirAll(d.sessionsDir(), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if _, err := os.Stat(d.indexPath()); os.IsNotExist(err) {
		if err := d.writeJSON(d.indexPath(), []*SessionIndex{}); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	logger.Infof("Disk storage initialized at %s", d.dataDir)
	return nil
}

func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]*model.Session)
	return nil
}

func (d *DiskStorage) sessionsDir() string {
	return filepath.Join(d.dataDir, "sessions")
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, "sessions.json")
}

// validID reports whether sessionID is a canonical uuid, the only form
// CreateSession hands out. Anything else never reaches the filesystem.
func validID(sessionID string) bool {
	parsed, err := uuid.Parse(sessionID)
	return err == nil && parsed.String() == sessionID
}

func (d *DiskStorage) sessionPath(sessionID string) string {
	return filepath.Join(d.sessionsDir(), sessionID+".json")
}

// writeJSON writes through a temp file and renames, so readers never see a
// half-written file.
func (d *DiskStorage) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

func (d *DiskStorage) loadSessionFromFile(sessionID string) (*model.Session, error) {
	data, err := os.ReadFile(d.sessionPath(sessionID))
	if err != nil {
		return nil, err
	}

	record := sessionRecord{Session: &model.Session{}}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	session := record.Session
	if session.Messages == nil {
		session.Messages = make([]model.Message, 0)
	}
	session.NextMessageSeq = record.NextMessageSeq
	if session.NextMessageSeq <= int64(len(session.Messages)) {
		session.NextMessageSeq = int64(len(session.Messages)) + 1
	}

	return session, nil
}

// load returns the live cached session, reading it from disk on a miss.
// Callers hold the write lock.
func (d *DiskStorage) load(sessionID string) (*model.Session, error) {
	if session, exists := d.cache[sessionID]; exists {
		return session, nil
	}
	if !validID(sessionID) {
		return nil, ErrSessionNotFound
	}

	session, err := d.loadSessionFromFile(sessionID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[sessionID] = session
	d.evictCache(sessionID)
	return session, nil
}

// persist writes the session file and refreshes the index.
func (d *DiskStorage) persist(session *model.Session) error {
	record := sessionRecord{Session: session, NextMessageSeq: session.NextMessageSeq}
	if err := d.writeJSON(d.sessionPath(session.ID), record); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := d.updateSessionIndex(session); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (d *DiskStorage) CreateSession(topic string) (*model.Session, error) {
	if topic == "" {
		return nil, ErrInvalidData
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	session := newSession(topic, d.now())
	if err := d.persist(session); err != nil {
		return nil, err
	}

	d.cache[session.ID] = session
	d.evictCache(session.ID)

	return session.Clone(), nil
}

func (d *DiskStorage) GetSession(sessionID string) (*model.Session, error) {
	d.mu.RLock()
	if session, exists := d.cache[sessionID]; exists {
		defer d.mu.RUnlock()
		return session.Clone(), nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.load(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

func (d *DiskStorage) ListSessions() ([]*model.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	indexes, err := d.readIndex()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.Session, 0, len(indexes))
	for _, index := range indexes {
		sessions = append(sessions, &model.Session{
			ID:        index.ID,
			Topic:     index.Topic,
			CreatedAt: index.CreatedAt,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

func (d *DiskStorage) AppendMessage(sessionID string, role model.Role, content string) (*model.Message, error) {
	if role == model.RoleSystem {
		return nil, ErrInvalidData
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.load(sessionID)
	if err != nil {
		return nil, err
	}

	msg := appendTo(session, role, content, d.now())
	if err := d.persist(session); err != nil {
		// the cached copy already has the message; drop it so the next read
		// reflects what is actually on disk
		delete(d.cache, sessionID)
		return nil, err
	}

	return &msg, nil
}

func (d *DiskStorage) AttachQuiz(sessionID string, quiz *model.Quiz) error {
	if quiz == nil {
		return ErrInvalidData
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.load(sessionID)
	if err != nil {
		return err
	}

	attachTo(session, quiz, d.now())
	if err := d.persist(session); err != nil {
		delete(d.cache, sessionID)
		return err
	}
	return nil
}

func (d *DiskStorage) CompleteQuiz(sessionID, quizID string) (*model.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.load(sessionID)
	if err != nil {
		return nil, err
	}
	if err := checkActiveQuiz(session, quizID); err != nil {
		return nil, err
	}

	session.IsQuizActive = false
	if err := d.persist(session); err != nil {
		delete(d.cache, sessionID)
		return nil, err
	}
	return session.Clone(), nil
}

func (d *DiskStorage) readIndex() ([]*SessionIndex, error) {
	data, err := os.ReadFile(d.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []*SessionIndex{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var indexes []*SessionIndex
	if err := json.Unmarshal(data, &indexes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return indexes, nil
}

func (d *DiskStorage) updateSessionIndex(session *model.Session) error {
	indexes, err := d.readIndex()
	if err != nil {
		return err
	}

	entry := &SessionIndex{
		ID:           session.ID,
		Topic:        session.Topic,
		CreatedAt:    session.CreatedAt,
		MessageCount: len(session.Messages),
	}

	replaced := false
	for i, index := range indexes {
		if index.ID == session.ID {
			indexes[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		indexes = append(indexes, entry)
	}

	return d.writeJSON(d.indexPath(), indexes)
}

// evictCache drops the oldest sessions once the cache grows past its size.
// keep is never evicted.
func (d *DiskStorage) evictCache(keep string) {
	if len(d.cache) <= d.cacheSize {
		return
	}

	type cacheEntry struct {
		id        string
		createdAt time.Time
	}

	var entries []cacheEntry
	for id, session := range d.cache {
		if id == keep {
			continue
		}
		entries = append(entries, cacheEntry{
			id:        id,
			createdAt: session.CreatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].createdAt.Before(entries[j].createdAt)
	})

	toEvict := len(d.cache) - d.cacheSize
	for i := 0; i < toEvict && i < len(entries); i++ {
		delete(d.cache, entries[i].id)
	}
}
