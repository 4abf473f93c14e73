package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"deal-fit/internal/domain"
)

// DocumentArchive guarda una copia de cada pitch deck subido.
type DocumentArchive interface {
	Save(ctx context.Context, doc domain.ArchivedDocument) error
}

// NewArchivedDocument arma el registro a archivar con el digest del contenido.
func NewArchivedDocument(doc domain.Document, contentType string, data []byte) domain.ArchivedDocument {
	sum := blake2b.Sum256(data)
	return domain.ArchivedDocument{
		ID:          doc.ID,
		Name:        doc.Name,
		ContentType: contentType,
		Digest:      hex.EncodeToString(sum[:]),
		Size:        int64(len(data)),
		Data:        data,
		TextContent: doc.TextContent,
		UploadedAt:  doc.UploadedAt,
	}
}

type multiArchive struct {
	archives []DocumentArchive
}

// NewMultiArchive combina archivos; devuelve nil si no queda ninguno.
func NewMultiArchive(archives ...DocumentArchive) DocumentArchive {
	var kept []DocumentArchive
	for _, a := range archives {
		if a != nil {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return &multiArchive{archives: kept}
}

func (m *multiArchive) Save(ctx context.Context, doc domain.ArchivedDocument) error {
	var errs []error
	for _, a := range m.archives {
		if err := a.Save(ctx, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type redisSetter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type redisDocumentArchive struct {
	client redisSetter
	ttl    time.Duration
	prefix string
}

// NewRedisDocumentArchive guarda metadata y bytes crudos con TTL.
func NewRedisDocumentArchive(client *redis.Client, ttl time.Duration) DocumentArchive {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisDocumentArchive{
		client: client,
		ttl:    ttl,
		prefix: "dealfit:deck:",
	}
}

func (a *redisDocumentArchive) Save(ctx context.Context, doc domain.ArchivedDocument) error {
	if doc.ID == "" {
		return errors.New("archive: document id is required")
	}
	meta, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("archive: marshal metadata: %w", err)
	}
	if err := a.client.Set(ctx, a.prefix+"meta:"+doc.ID, meta, a.ttl).Err(); err != nil {
		return fmt.Errorf("archive: store metadata: %w", err)
	}
	if err := a.client.Set(ctx, a.prefix+"raw:"+doc.ID, doc.Data, a.ttl).Err(); err != nil {
		return fmt.Errorf("archive: store content: %w", err)
	}
	return nil
}
