package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/burnbox/backend/internal/crypto"
	"github.com/burnbox/backend/internal/models"
	"github.com/burnbox/backend/internal/repository"
	"github.com/burnbox/backend/internal/storage"
	"github.com/burnbox/backend/pkg/logger"
	"github.com/burnbox/backend/pkg/utils"
)

const tokenCreateRetries = 3

// TransferService coordinates the upload and redemption paths: encrypt,
// store blob, create metadata on the way in; lookup, decrypt, atomically
// consume, delete blob on the way out. It holds no mutable state of its
// own; the metadata store arbitrates every race.
type TransferService struct {
	Repo    *repository.TransferRepository
	Storage storage.BlobStore
	Codec   *crypto.Codec

	// TTL applied to new transfers.
	TTL time.Duration

	// now is the clock used for expiry decisions. Tests override it.
	now func() time.Time
}

func NewTransferService(repo *repository.TransferRepository, blobs storage.BlobStore, codec *crypto.Codec, ttl time.Duration) *TransferService {
	return &TransferService{
		Repo:    repo,
		Storage: blobs,
		Codec:   codec,
		TTL:     ttl,
		now:     time.Now,
	}
}

// RedeemedFile is the decrypted payload plus the provenance the download
// response needs.
type RedeemedFile struct {
	OriginalName string
	MimeType     string
	Data         []byte
}

// Issue encrypts the payload, writes the blob, then creates the metadata
// row. Blob first, row second: the row is the completion marker, so a
// failure in between leaves an orphan blob for housekeeping rather than a
// redeemable-but-broken record. Token collisions are retried with fresh
// tokens a bounded number of times.
func (s *TransferService) Issue(ctx context.Context, payload []byte, originalName, mimeType string) (*models.Transfer, error) {
	blob, err := s.Codec.Encrypt(payload)
	if err != nil {
		return nil, fmt.Errorf("encrypting payload: %w", err)
	}

	storageKey := utils.NewTransferToken() + ".enc"
	if err := s.Storage.Put(ctx, storageKey, bytes.NewReader(blob), int64(len(blob)), "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("storing encrypted blob: %w", err)
	}

	var transfer *models.Transfer
	for attempt := 0; attempt < tokenCreateRetries; attempt++ {
		candidate := &models.Transfer{
			Token:        utils.NewTransferToken(),
			StorageKey:   storageKey,
			OriginalName: originalName,
			Size:         int64(len(payload)),
			MimeType:     mimeType,
			Consumed:     false,
			ExpiresAt:    s.now().Add(s.TTL),
		}

		err = s.Repo.Create(ctx, candidate)
		if err == nil {
			transfer = candidate
			break
		}
		if !errors.Is(err, repository.ErrDuplicateToken) {
			break
		}
		logger.Warn("transfer_token_collision", map[string]interface{}{
			"attempt": attempt + 1,
		})
	}

	if transfer == nil {
		// The row never landed, so the blob can never be redeemed.
		if delErr := s.Storage.Delete(ctx, storageKey); delErr != nil {
			logger.Error("transfer_orphan_blob_cleanup_failed", delErr, map[string]interface{}{
				"storage_key": storageKey,
			})
		}
		return nil, fmt.Errorf("creating transfer record: %w", err)
	}

	logger.Info("transfer_issued", map[string]interface{}{
		"transfer_id": transfer.ID.String(),
		"file_name":   originalName,
		"file_size":   transfer.Size,
		"mime_type":   mimeType,
		"expires_at":  transfer.ExpiresAt,
	})

	return transfer, nil
}

// Redeem releases the plaintext for a token to at most one caller.
// Decryption runs speculatively before the consume; release is gated
// strictly on winning the atomic flag flip, and a loser's plaintext is
// discarded.
func (s *TransferService) Redeem(ctx context.Context, token string) (*RedeemedFile, error) {
	transfer, err := s.Repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, fmt.Errorf("loading transfer: %w", err)
	}

	// Expiry wins over the consumed state.
	if transfer.Expired(s.now()) {
		return nil, ErrTransferExpired
	}
	if transfer.Consumed {
		return nil, ErrTransferConsumed
	}

	blob, err := s.Storage.Get(ctx, transfer.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Error("transfer_blob_missing", err, map[string]interface{}{
				"transfer_id": transfer.ID.String(),
				"storage_key": transfer.StorageKey,
			})
			return nil, ErrStorageInconsistency
		}
		return nil, fmt.Errorf("fetching encrypted blob: %w", err)
	}

	plaintext, err := s.Codec.Decrypt(blob)
	if err != nil {
		logger.Error("transfer_decrypt_failed", err, map[string]interface{}{
			"transfer_id": transfer.ID.String(),
			"storage_key": transfer.StorageKey,
		})
		return nil, err
	}

	won, err := s.Repo.Consume(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("consuming transfer: %w", err)
	}
	if !won {
		// A concurrent redemption got there first. This caller decrypted
		// successfully but must not receive the bytes.
		return nil, ErrTransferConsumed
	}

	// Only the winner deletes. A failed delete leaves an orphan blob for
	// housekeeping; the row is already consumed so no second read exists.
	if err := s.Storage.Delete(ctx, transfer.StorageKey); err != nil {
		logger.Warn("transfer_blob_delete_failed", map[string]interface{}{
			"transfer_id": transfer.ID.String(),
			"storage_key": transfer.StorageKey,
			"error":       err.Error(),
		})
	}

	logger.Info("transfer_redeemed", map[string]interface{}{
		"transfer_id": transfer.ID.String(),
		"file_name":   transfer.OriginalName,
		"file_size":   transfer.Size,
	})

	return &RedeemedFile{
		OriginalName: transfer.OriginalName,
		MimeType:     transfer.MimeType,
		Data:         plaintext,
	}, nil
}

// Describe returns the metadata for a token without touching the payload
// or the consumed flag. Expired transfers are reported as such; consumed
// ones are returned with the flag set so callers can render link state.
func (s *TransferService) Describe(ctx context.Context, token string) (*models.Transfer, error) {
	transfer, err := s.Repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, fmt.Errorf("loading transfer: %w", err)
	}

	if transfer.Expired(s.now()) {
		return nil, ErrTransferExpired
	}

	return transfer, nil
}
