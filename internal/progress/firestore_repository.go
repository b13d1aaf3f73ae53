package progress

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/streak"
)

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository instantiates a Firestore-backed repository. Each learner is one
// document in the progress collection.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

const progressCollection = "progress"

type recordDoc struct {
	Score         int                 `firestore:"score"`
	Stars         int                 `firestore:"stars"`
	MaxStreak     int                 `firestore:"max_streak"`
	Completions   map[string][]string `firestore:"completions"`
	CreditedGames map[string][]string `firestore:"credited_games"`
	Settings      Settings            `firestore:"settings"`
	UpdatedAt     time.Time           `firestore:"updated_at"`
}

func (r *firestoreRepository) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection(progressCollection).Doc(userID)
}

func (r *firestoreRepository) Load(ctx context.Context, userID string) (Record, error) {
	snap, err := r.doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return snapshotToRecord(userID, snap)
}

func (r *firestoreRepository) Save(ctx context.Context, rec Record) error {
	if rec.UserID == "" {
		return ErrMissingUserID
	}
	_, err := r.doc(rec.UserID).Set(ctx, recordToDoc(rec))
	return err
}

func (r *firestoreRepository) Update(ctx context.Context, userID string, fn UpdateFunc) (Record, error) {
	if userID == "" {
		return Record{}, ErrMissingUserID
	}

	ref := r.doc(userID)
	var out Record
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		rec := NewRecord(userID)
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			if rec, err = snapshotToRecord(userID, snap); err != nil {
				return err
			}
		}

		if err := fn(&rec); err != nil {
			return err
		}
		out = rec
		return tx.Set(ref, recordToDoc(rec))
	})
	if err != nil {
		return Record{}, err
	}
	return out, nil
}

func (r *firestoreRepository) Delete(ctx context.Context, userID string) error {
	ref := r.doc(userID)
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	_, err := ref.Delete(ctx)
	return err
}

func recordToDoc(rec Record) recordDoc {
	return recordDoc{
		Score:         rec.Score,
		Stars:         rec.Stars,
		MaxStreak:     rec.MaxStreak,
		Completions:   compact(rec.Completions),
		CreditedGames: compact(rec.CreditedGames),
		Settings:      rec.Settings,
		UpdatedAt:     rec.UpdatedAt.UTC(),
	}
}

// compact drops empty days so they never reach the document.
func compact(m streak.CompletionMap) map[string][]string {
	out := make(map[string][]string, len(m))
	for date, ids := range m {
		if len(ids) == 0 {
			continue
		}
		out[date] = append([]string(nil), ids...)
	}
	return out
}

func snapshotToRecord(userID string, snap *firestore.DocumentSnapshot) (Record, error) {
	var payload recordDoc
	if err := snap.DataTo(&payload); err != nil {
		return Record{}, fmt.Errorf("decode progress %s: %w", userID, err)
	}

	rec := Record{
		UserID:        userID,
		Score:         payload.Score,
		Stars:         payload.Stars,
		MaxStreak:     payload.MaxStreak,
		Completions:   streak.CompletionMap(payload.Completions),
		CreditedGames: streak.CompletionMap(payload.CreditedGames),
		Settings:      payload.Settings,
		UpdatedAt:     payload.UpdatedAt,
	}
	if rec.Completions == nil {
		rec.Completions = streak.CompletionMap{}
	}
	if rec.CreditedGames == nil {
		rec.CreditedGames = streak.CompletionMap{}
	}
	return rec, nil
}
