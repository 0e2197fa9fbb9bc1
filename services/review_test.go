package services

import (
	"context"
	"testing"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func newReviewFixture(t *testing.T) (*memDB, *ReviewService, *fakeImages, models.Product, models.User) {
	t.Helper()
	db := newMemDB()
	images := &fakeImages{}
	svc := NewReviewService(db, memReviews{db}, memProducts{db}, images)
	p := db.addProduct(models.Product{Name: "Sneakers", Price: 2999})
	u := db.addUser(models.User{Name: "Kiran", Email: "kiran@example.com", Role: models.RoleUser})
	return db, svc, images, p, u
}

func TestAverageRating(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{nil, 0},
		{[]float64{3}, 3},
		{[]float64{4, 5}, 4.5},
		{[]float64{5, 4, 4}, 4.33},
	}
	for _, tt := range tests {
		if got := averageRating(tt.in); got != tt.want {
			t.Errorf("averageRating(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCreateReviewUpdatesRating(t *testing.T) {
	db, svc, _, p, u := newReviewFixture(t)
	ctx := context.Background()
	req := Requester{ID: u.ID, Role: models.RoleUser}

	rv, err := svc.Create(ctx, req, ReviewInput{ProductID: p.ID.Hex(), Rating: 3, Comment: " fits well "}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rv.Comment != "fits well" {
		t.Errorf("comment = %q", rv.Comment)
	}
	got, _ := db.product(p.ID)
	if got.Rating != 3 || got.NumReviews != 1 || len(got.Reviews) != 1 || got.Reviews[0] != rv.ID {
		t.Errorf("product rating = %v/%d reviews = %v", got.Rating, got.NumReviews, got.Reviews)
	}

	other := db.addUser(models.User{Name: "Dev", Email: "dev@example.com"})
	if _, err := svc.Create(ctx, Requester{ID: other.ID}, ReviewInput{ProductID: p.ID.Hex(), Rating: 5, Comment: "love"}, nil); err != nil {
		t.Fatalf("second review: %v", err)
	}
	got, _ = db.product(p.ID)
	if got.Rating != 4 || got.NumReviews != 2 {
		t.Errorf("rating = %v/%d, want 4/2", got.Rating, got.NumReviews)
	}

	if _, err := svc.Create(ctx, req, ReviewInput{ProductID: p.ID.Hex(), Rating: 4, Comment: "again"}, nil); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate: err = %v, want ConflictError", err)
	}
}

// staleReviews reports no existing review, as a concurrent request would before
// either insert lands.
type staleReviews struct{ memReviews }

func (staleReviews) Exists(context.Context, bson.ObjectID, bson.ObjectID) (bool, error) {
	return false, nil
}

func TestCreateReviewDuplicateInsertIsConflict(t *testing.T) {
	db, _, images, p, u := newReviewFixture(t)
	svc := NewReviewService(db, staleReviews{memReviews{db}}, memProducts{db}, images)
	ctx := context.Background()
	req := Requester{ID: u.ID, Role: models.RoleUser}
	in := ReviewInput{ProductID: p.ID.Hex(), Rating: 4, Comment: "nice"}

	if _, err := svc.Create(ctx, req, in, nil); err != nil {
		t.Fatalf("first review: %v", err)
	}
	_, err := svc.Create(ctx, req, in, nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if got, _ := db.product(p.ID); got.NumReviews != 1 {
		t.Errorf("numReviews = %d, want 1", got.NumReviews)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	db, svc, _, p, u := newReviewFixture(t)
	req := Requester{ID: u.ID}
	tests := []struct {
		name string
		in   ReviewInput
		kind apperr.Kind
	}{
		{"rating too high", ReviewInput{ProductID: p.ID.Hex(), Rating: 6, Comment: "x"}, apperr.KindValidation},
		{"rating too low", ReviewInput{ProductID: p.ID.Hex(), Rating: 0, Comment: "x"}, apperr.KindValidation},
		{"empty comment", ReviewInput{ProductID: p.ID.Hex(), Rating: 4, Comment: "  "}, apperr.KindValidation},
		{"bad product id", ReviewInput{ProductID: "x", Rating: 4, Comment: "x"}, apperr.KindValidation},
		{"missing product", ReviewInput{ProductID: "65f000000000000000000009", Rating: 4, Comment: "x"}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), req, tt.in, nil)
			if err == nil || apperr.KindOf(err) != tt.kind {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
		})
	}
	if _, err := svc.Create(context.Background(), req, ReviewInput{ProductID: p.ID.Hex(), Rating: 6, Comment: "x"}, nil); apperr.Message(err) != "Rating must be a number between 1 and 5" {
		t.Errorf("message = %q", apperr.Message(err))
	}
	got, _ := db.product(p.ID)
	if got.NumReviews != 0 {
		t.Errorf("numReviews = %d, want 0", got.NumReviews)
	}
}

func TestDeleteOnlyReviewResetsRating(t *testing.T) {
	db, svc, images, p, u := newReviewFixture(t)
	ctx := context.Background()
	owner := Requester{ID: u.ID, Role: models.RoleUser}

	rv, err := svc.Create(ctx, owner, ReviewInput{ProductID: p.ID.Hex(), Rating: 5, Comment: "great"}, fileHeader("r.jpg"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	stranger := db.addUser(models.User{Name: "S", Email: "s@example.com"})
	if err := svc.Delete(ctx, Requester{ID: stranger.ID, Role: models.RoleUser}, rv.ID.Hex()); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("stranger delete: err = %v, want ForbiddenError", err)
	}

	if err := svc.Delete(ctx, owner, rv.ID.Hex()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ := db.product(p.ID)
	if got.Rating != 0 || got.NumReviews != 0 || len(got.Reviews) != 0 {
		t.Errorf("after delete rating = %v/%d reviews = %v", got.Rating, got.NumReviews, got.Reviews)
	}
	if len(images.deleted) != 1 || images.deleted[0] != "reviews/r.jpg" {
		t.Errorf("deleted images = %v", images.deleted)
	}
	if err := svc.Delete(ctx, owner, rv.ID.Hex()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second delete: err = %v, want NotFoundError", err)
	}
}

func TestAdminDeletesAnyReview(t *testing.T) {
	db, svc, _, p, u := newReviewFixture(t)
	ctx := context.Background()
	rv, err := svc.Create(ctx, Requester{ID: u.ID}, ReviewInput{ProductID: p.ID.Hex(), Rating: 2, Comment: "meh"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	admin := db.addUser(models.User{Name: "A", Email: "a@example.com", Role: models.RoleAdmin})
	if err := svc.Delete(ctx, Requester{ID: admin.ID, Role: models.RoleAdmin}, rv.ID.Hex()); err != nil {
		t.Errorf("admin delete: %v", err)
	}
}
