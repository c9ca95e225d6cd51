package member

import "context"

type MemberRepository interface {
	Save(ctx context.Context, member *Member) error

	FindByID(ctx context.Context, memberID int64) (*Member, error)

	FindAll(ctx context.Context) ([]*Member, error)

	Delete(ctx context.Context, memberID int64) error
}
