package orders

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Reviews is the storage accessor for review records. The create path maps
// the (user_id, order_id) unique violation onto ErrDuplicateReview so two
// concurrent submissions resolve to exactly one success.
type Reviews interface {
	repository.Repository[*Review]

	Create(ctx context.Context, record *Review, criteria ...repository.InsertCriteria) (*Review, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Review, criteria ...repository.InsertCriteria) (*Review, error)
	GetByUserAndOrder(ctx context.Context, userID, orderID uuid.UUID) (*Review, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Review, error)
	AddHelpfulVote(ctx context.Context, reviewID uuid.UUID, voterID string) (*Review, error)
}

type reviewsRepo struct {
	repository.Repository[*Review]
	db *bun.DB
}

var (
	_ Reviews                        = (*reviewsRepo)(nil)
	_ repository.Repository[*Review] = (*reviewsRepo)(nil)
)

// NewReviewsRepository builds the bun backed Reviews accessor.
func NewReviewsRepository(db *bun.DB) Reviews {
	repo := repository.NewRepository[*Review](db, repository.ModelHandlers[*Review]{
		NewRecord: func() *Review { return &Review{} },
		GetID: func(r *Review) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Review, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &reviewsRepo{
		Repository: repo,
		db:         db,
	}
}

func (r *reviewsRepo) Create(ctx context.Context, record *Review, criteria ...repository.InsertCriteria) (*Review, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *reviewsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *Review, criteria ...repository.InsertCriteria) (*Review, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	created, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateReview
		}
		return nil, err
	}

	return created, nil
}

func (r *reviewsRepo) GetByUserAndOrder(ctx context.Context, userID, orderID uuid.UUID) (*Review, error) {
	record := &Review{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.order_id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"user":  userID.String(),
				"order": orderID.String(),
			})
		}
		return nil, err
	}
	return record, nil
}

func (r *reviewsRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Review, error) {
	var records []*Review
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.order_id = ?", orderID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// AddHelpfulVote appends a voter and bumps the counter. A voter that already
// appears in the voters list is a no-op; the current record is returned
// unchanged.
func (r *reviewsRepo) AddHelpfulVote(ctx context.Context, reviewID uuid.UUID, voterID string) (*Review, error) {
	record, err := r.Repository.GetByID(ctx, reviewID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"review": reviewID.String(),
			})
		}
		return nil, err
	}

	if record.HasVoted(voterID) {
		return record, nil
	}

	record.Voters = append(record.Voters, voterID)
	record.HelpfulVotes = len(record.Voters)

	_, err = r.db.NewUpdate().
		Model(record).
		Column("voters", "helpful_votes").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}
