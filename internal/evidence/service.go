package evidence

import (
	"context"
	"io"
	"math/rand"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/unicode/norm"

	"CAMPUS-backend/internal/platform/apperr"
)

type Service struct {
	store *Store
	dir   string

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewService(store *Store, dir string) *Service {
	return &Service{
		store:   store,
		dir:     dir,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (s *Service) newRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "ev_" + ulid.MustNew(ulid.Timestamp(time.Now().UTC()), s.entropy).String()
}

// cleanName: macOS由来の合成文字ゆれを吸収しつつパス要素を落とす
func cleanName(name string) string {
	name = norm.NFC.String(name)
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "attachment"
	}
	return name
}

// Save: 添付を保存してevidence_refを返す。実体はdir配下、メタはDB
func (s *Service) Save(ctx context.Context, fh *multipart.FileHeader, uploadedBy string) (*File, error) {
	if fh.Size > MaxUploadBytes {
		return nil, apperr.ErrInvalid("file exceeds 10MB limit")
	}
	if fh.Size == 0 {
		return nil, apperr.ErrInvalid("file is empty")
	}

	src, err := fh.Open()
	if err != nil {
		return nil, apperr.ErrInvalid("failed to read uploaded file")
	}
	defer src.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, apperr.ErrInternal("failed to prepare evidence directory")
	}

	ref := s.newRef()
	dstPath := filepath.Join(s.dir, ref)

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, apperr.ErrInternal("failed to create evidence file")
	}

	written, err := io.Copy(dst, io.LimitReader(src, MaxUploadBytes+1))
	closeErr := dst.Close()
	if err != nil || closeErr != nil {
		_ = os.Remove(dstPath)
		return nil, apperr.ErrInternal("failed to write evidence file")
	}
	if written > MaxUploadBytes {
		_ = os.Remove(dstPath)
		return nil, apperr.ErrInvalid("file exceeds 10MB limit")
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	f := &File{
		EvidenceRef:  ref,
		OriginalName: cleanName(fh.Filename),
		ContentType:  contentType,
		SizeBytes:    written,
		UploadedBy:   uploadedBy,
		UploadedAt:   time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, f); err != nil {
		_ = os.Remove(dstPath)
		return nil, err
	}
	return f, nil
}

// Open: メタと実体のリーダーを返す。クローズは呼び出し側
func (s *Service) Open(ctx context.Context, ref string) (*File, io.ReadCloser, error) {
	f, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	rc, err := os.Open(filepath.Join(s.dir, ref))
	if err != nil {
		// メタだけ残って実体が消えている
		return nil, nil, apperr.ErrInternal("evidence payload missing")
	}
	return f, rc, nil
}
