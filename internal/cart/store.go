package cart

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/pkg/errors"
)

// ErrCorruptDocument is returned by Load when the persisted guest cart cannot be decoded
var ErrCorruptDocument = stderrors.New("corrupt guest cart document")

// Document is the whole persisted guest cart: {"cart":{"products":[...]}}.
// It is always written wholesale.
type Document struct {
	Cart DocumentCart `json:"cart"`
}

// DocumentCart holds the stored lines
type DocumentCart struct {
	Products []StoredLine `json:"products"`
}

// StoredLine is a guest cart line as persisted. VariantID and Variant are legacy references
// written by older clients; they are read but never written back.
type StoredLine struct {
	ID        string                 `json:"id,omitempty"`
	Product   domain.ProductSnapshot `json:"product"`
	SKU       string                 `json:"sku,omitempty"`
	Quantity  int                    `json:"quantity"`
	VariantID string                 `json:"variantId,omitempty"`
	Variant   json.RawMessage        `json:"variant,omitempty"`
}

// CartLine returns the line without legacy references
func (s StoredLine) CartLine() domain.CartLine {
	return domain.CartLine{
		ID:       s.ID,
		Product:  s.Product,
		SKU:      s.SKU,
		Quantity: s.Quantity,
	}
}

// LegacyVariantID returns the variant ID carried by variantId or variant._id / variant.id
func (s StoredLine) LegacyVariantID() string {
	if s.VariantID != "" {
		return s.VariantID
	}
	if len(s.Variant) == 0 {
		return ""
	}
	var ref struct {
		MongoID string `json:"_id"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(s.Variant, &ref); err != nil {
		// a bare string id
		var id string
		if json.Unmarshal(s.Variant, &id) == nil {
			return id
		}
		return ""
	}
	if ref.MongoID != "" {
		return ref.MongoID
	}
	return ref.ID
}

// HasLegacyReference reports whether the line carries a variant reference field
func (s StoredLine) HasLegacyReference() bool {
	return s.VariantID != "" || len(s.Variant) > 0
}

// NewDocument returns an empty guest cart document
func NewDocument() *Document {
	return &Document{Cart: DocumentCart{Products: []StoredLine{}}}
}

// DocumentFromLines builds the persisted form of lines
func DocumentFromLines(lines []domain.CartLine) *Document {
	doc := NewDocument()
	for _, l := range lines {
		doc.Cart.Products = append(doc.Cart.Products, StoredLine{
			ID:       l.ID,
			Product:  l.Product,
			SKU:      l.SKU,
			Quantity: l.Quantity,
		})
	}
	return doc
}

// DecodeDocument parses a persisted document. Empty input is an empty cart; a document
// without a products list is an empty cart; anything that is not valid JSON is corrupt.
func DecodeDocument(raw []byte) (*Document, error) {
	if len(raw) == 0 {
		return NewDocument(), nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	if doc.Cart.Products == nil {
		doc.Cart.Products = []StoredLine{}
	}
	return &doc, nil
}

// Store loads and saves one guest cart document
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// Documents persists raw guest cart documents keyed by guest session ID.
// GetDocument returns nil bytes and no error for an unknown session.
type Documents interface {
	GetDocument(ctx context.Context, sessionID string) ([]byte, error)
	SaveDocument(ctx context.Context, sessionID string, raw []byte) error
}

type sessionStore struct {
	docs      Documents
	sessionID string
}

// SessionStore binds a document backend to one guest session
func SessionStore(docs Documents, sessionID string) Store {
	return &sessionStore{docs: docs, sessionID: sessionID}
}

func (s *sessionStore) Load(ctx context.Context) (*Document, error) {
	raw, err := s.docs.GetDocument(ctx, s.sessionID)
	if err != nil {
		return nil, err
	}
	return DecodeDocument(raw)
}

func (s *sessionStore) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		doc = NewDocument()
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	return s.docs.SaveDocument(ctx, s.sessionID, raw)
}

// MemoryDocuments keeps guest cart documents in process memory
type MemoryDocuments struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryDocuments creates an empty in-memory document backend
func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{docs: make(map[string][]byte)}
}

func (m *MemoryDocuments) GetDocument(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.docs[sessionID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), raw...), nil
}

func (m *MemoryDocuments) SaveDocument(_ context.Context, sessionID string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[sessionID] = append([]byte(nil), raw...)
	return nil
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// FileDocuments keeps one JSON file per guest session under dir
type FileDocuments struct {
	dir string
}

// NewFileDocuments creates a file backend rooted at dir
func NewFileDocuments(dir string) *FileDocuments {
	return &FileDocuments{dir: dir}
}

func (f *FileDocuments) path(sessionID string) (string, error) {
	if !sessionIDPattern.MatchString(sessionID) {
		return "", &errors.ErrValidation{
			Message: "invalid guest session id",
			Fields:  map[string]string{"session_id": sessionID},
		}
	}
	return filepath.Join(f.dir, sessionID+".json"), nil
}

func (f *FileDocuments) GetDocument(_ context.Context, sessionID string) ([]byte, error) {
	p, err := f.path(sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if stderrors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}
	return raw, nil
}

// SaveDocument replaces the session file atomically
func (f *FileDocuments) SaveDocument(_ context.Context, sessionID string, raw []byte) error {
	p, err := f.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create guest cart dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, ".guest-cart-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write guest cart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write guest cart: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace guest cart: %w", err)
	}
	return nil
}
