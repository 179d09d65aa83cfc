package updates

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/pagination"
)

type stubRepo struct {
	putFn    func(ctx context.Context, item Item) error
	listFn   func(ctx context.Context, limit int, after *pagination.Cursor) ([]Item, error)
	deleteFn func(ctx context.Context, id, requesterID uuid.UUID, asAdmin bool) error
}

func (s stubRepo) Put(ctx context.Context, item Item) error {
	if s.putFn != nil {
		return s.putFn(ctx, item)
	}
	return nil
}

func (s stubRepo) ListNewest(ctx context.Context, limit int, after *pagination.Cursor) ([]Item, error) {
	if s.listFn != nil {
		return s.listFn(ctx, limit, after)
	}
	return nil, nil
}

func (s stubRepo) Delete(ctx context.Context, id, requesterID uuid.UUID, asAdmin bool) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id, requesterID, asAdmin)
	}
	return nil
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, func() time.Time { return fixedNow })
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateStoresTrimmedUpdate(t *testing.T) {
	var stored Item
	svc := newTestService(t, stubRepo{putFn: func(_ context.Context, item Item) error {
		stored = item
		return nil
	}})
	actor := Actor{UserID: uuid.New(), Role: enums.RoleShopOwner}

	dto, err := svc.Create(context.Background(), actor, CreateInput{
		Body:      "  New deck finished  ",
		PhotoURLs: []string{" https://cdn.example.com/deck.jpg "},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if stored.Body != "New deck finished" {
		t.Fatalf("expected trimmed body, got %q", stored.Body)
	}
	if stored.AuthorID != actor.UserID || stored.AuthorRole != enums.RoleShopOwner {
		t.Fatalf("unexpected author %+v", stored)
	}
	if !stored.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected created_at from clock, got %s", stored.CreatedAt)
	}
	if dto.PhotoURLs[0] != "https://cdn.example.com/deck.jpg" {
		t.Fatalf("unexpected photo url %q", dto.PhotoURLs[0])
	}
}

func TestCreateValidation(t *testing.T) {
	actor := Actor{UserID: uuid.New(), Role: enums.RoleHomeowner}
	cases := []struct {
		name  string
		input CreateInput
		field string
	}{
		{"empty body", CreateInput{Body: "   "}, "body"},
		{"long body", CreateInput{Body: strings.Repeat("a", maxBodyLength+1)}, "body"},
		{"too many photos", CreateInput{Body: "ok", PhotoURLs: make([]string, maxPhotos+1)}, "photo_urls"},
		{"bad url", CreateInput{Body: "ok", PhotoURLs: []string{"ftp://x/y.jpg"}}, "photo_urls"},
		{"relative url", CreateInput{Body: "ok", PhotoURLs: []string{"/y.jpg"}}, "photo_urls"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, stubRepo{putFn: func(context.Context, Item) error {
				t.Fatal("repository must not be called")
				return nil
			}})
			_, err := svc.Create(context.Background(), actor, tc.input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			details, _ := pkgerrors.As(err).Details().(pkgerrors.FieldViolation)
			if details.Field != tc.field {
				t.Fatalf("expected field %s, got %+v", tc.field, pkgerrors.As(err).Details())
			}
		})
	}
}

func TestCreateRequiresIdentity(t *testing.T) {
	svc := newTestService(t, stubRepo{})
	_, err := svc.Create(context.Background(), Actor{}, CreateInput{Body: "hi"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestListPaginates(t *testing.T) {
	items := make([]Item, 0, 3)
	for i := 0; i < 3; i++ {
		items = append(items, Item{ID: uuid.New(), AuthorID: uuid.New(), Body: "x", CreatedAt: fixedNow.Add(-time.Duration(i) * time.Hour)})
	}
	var gotLimit int
	svc := newTestService(t, stubRepo{listFn: func(_ context.Context, limit int, after *pagination.Cursor) ([]Item, error) {
		gotLimit = limit
		if after != nil {
			t.Fatalf("expected no cursor on first page")
		}
		return items, nil
	}})

	result, err := svc.List(context.Background(), pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotLimit != 3 {
		t.Fatalf("expected limit+1 lookahead, got %d", gotLimit)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	cursor, err := pagination.ParseCursor(result.Cursor)
	if err != nil || cursor == nil {
		t.Fatalf("expected next cursor, got %q (%v)", result.Cursor, err)
	}
	if cursor.ID != items[1].ID {
		t.Fatalf("cursor should point at last returned item")
	}
}

func TestListRejectsBadCursor(t *testing.T) {
	svc := newTestService(t, stubRepo{})
	_, err := svc.List(context.Background(), pagination.Params{Cursor: "%%%"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteMapsRepositoryErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code pkgerrors.Code
	}{
		{"not found", ErrNotFound, pkgerrors.CodeNotFound},
		{"not author", ErrNotAuthor, pkgerrors.CodeForbidden},
		{"dependency", errors.New("throttled"), pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, stubRepo{deleteFn: func(context.Context, uuid.UUID, uuid.UUID, bool) error {
				return tc.err
			}})
			err := svc.Delete(context.Background(), Actor{UserID: uuid.New(), Role: enums.RoleHomeowner}, uuid.New())
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestDeleteAsAdmin(t *testing.T) {
	var admin bool
	svc := newTestService(t, stubRepo{deleteFn: func(_ context.Context, _, _ uuid.UUID, asAdmin bool) error {
		admin = asAdmin
		return nil
	}})
	if err := svc.Delete(context.Background(), Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, uuid.New()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !admin {
		t.Fatal("expected admin delete")
	}
}
