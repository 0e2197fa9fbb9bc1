package services

import (
	"cmp"
	"context"
	"errors"
	"mime/multipart"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fashalt/fashaltbackend/events"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/payment"
	"github.com/fashalt/fashaltbackend/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// memDB is an in-memory document store. Transactions are serialized and roll back by
// restoring a snapshot taken when they start.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	products   map[bson.ObjectID]models.Product
	categories map[bson.ObjectID]models.Category
	orders     map[bson.ObjectID]models.Order
	users      map[bson.ObjectID]models.User
	reviews    map[bson.ObjectID]models.Review

	// failInsertOrder makes the next order insert fail.
	failInsertOrder error
}

func newMemDB() *memDB {
	return &memDB{
		products:   map[bson.ObjectID]models.Product{},
		categories: map[bson.ObjectID]models.Category{},
		orders:     map[bson.ObjectID]models.Order{},
		users:      map[bson.ObjectID]models.User{},
		reviews:    map[bson.ObjectID]models.Review{},
	}
}

func cloneProduct(p models.Product) models.Product {
	p.Images = slices.Clone(p.Images)
	p.Sizes = slices.Clone(p.Sizes)
	p.For = slices.Clone(p.For)
	p.Reviews = slices.Clone(p.Reviews)
	return p
}

func cloneUser(u models.User) models.User {
	u.Wishlist = slices.Clone(u.Wishlist)
	return u
}

type memSnapshot struct {
	products   map[bson.ObjectID]models.Product
	categories map[bson.ObjectID]models.Category
	orders     map[bson.ObjectID]models.Order
	users      map[bson.ObjectID]models.User
	reviews    map[bson.ObjectID]models.Review
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := memSnapshot{
		products:   make(map[bson.ObjectID]models.Product, len(db.products)),
		categories: make(map[bson.ObjectID]models.Category, len(db.categories)),
		orders:     make(map[bson.ObjectID]models.Order, len(db.orders)),
		users:      make(map[bson.ObjectID]models.User, len(db.users)),
		reviews:    make(map[bson.ObjectID]models.Review, len(db.reviews)),
	}
	for k, v := range db.products {
		s.products[k] = cloneProduct(v)
	}
	for k, v := range db.categories {
		s.categories[k] = v
	}
	for k, v := range db.orders {
		v.Items = slices.Clone(v.Items)
		s.orders[k] = v
	}
	for k, v := range db.users {
		s.users[k] = cloneUser(v)
	}
	for k, v := range db.reviews {
		s.reviews[k] = v
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.products, db.categories, db.orders, db.users, db.reviews = s.products, s.categories, s.orders, s.users, s.reviews
}

func (db *memDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	snap := db.snapshot()
	if err := fn(ctx); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func (db *memDB) product(id bson.ObjectID) (models.Product, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.products[id]
	return cloneProduct(p), ok
}

func (db *memDB) addProduct(p models.Product) models.Product {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}
	db.products[p.ID] = cloneProduct(p)
	return p
}

func (db *memDB) addUser(u models.User) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	db.users[u.ID] = cloneUser(u)
	return u
}

func (db *memDB) orderCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.orders)
}

// ---- products

type memProducts struct{ db *memDB }

func (s memProducts) FindByID(_ context.Context, id bson.ObjectID) (*models.Product, error) {
	p, ok := s.db.product(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s memProducts) FindByIDs(_ context.Context, ids []bson.ObjectID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := s.db.product(id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s memProducts) all() []models.Product {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]models.Product, 0, len(s.db.products))
	for _, p := range s.db.products {
		out = append(out, cloneProduct(p))
	}
	slices.SortFunc(out, func(a, b models.Product) int { return strings.Compare(a.ID.Hex(), b.ID.Hex()) })
	return out
}

func matches(p models.Product, f models.ProductFilter) bool {
	if f.Category != nil && p.Category != *f.Category {
		return false
	}
	if len(f.Brands) > 0 && !slices.Contains(f.Brands, p.Brand) {
		return false
	}
	for _, sz := range f.Sizes {
		if !slices.Contains(p.Sizes, sz) {
			return false
		}
	}
	if f.Price != nil && (p.Price < f.Price.Min || p.Price > f.Price.Max) {
		return false
	}
	if f.Discount != nil && p.Discount != *f.Discount {
		return false
	}
	if f.Rating != nil && p.Rating < *f.Rating {
		return false
	}
	if f.Audience != "" && !slices.Contains(p.For, f.Audience) {
		return false
	}
	if kw := strings.ToLower(f.Keyword); kw != "" &&
		!strings.Contains(strings.ToLower(p.Name), kw) && !strings.Contains(strings.ToLower(p.Description), kw) {
		return false
	}
	return true
}

func sortProducts(ps []models.Product, key models.SortKey) {
	slices.SortStableFunc(ps, func(a, b models.Product) int {
		var c int
		switch key {
		case models.SortPriceAsc:
			c = cmp.Compare(a.Price, b.Price)
		case models.SortPriceDesc:
			c = cmp.Compare(b.Price, a.Price)
		case models.SortRatingAsc:
			c = cmp.Compare(a.Rating, b.Rating)
		case models.SortRatingDesc:
			c = cmp.Compare(b.Rating, a.Rating)
		case models.SortCreatedAtAsc:
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = b.CreatedAt.Compare(a.CreatedAt)
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID.Hex(), b.ID.Hex())
	})
}

func window[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	end := int64(len(items))
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}

func (s memProducts) Find(_ context.Context, q models.ProductQuery) ([]models.Product, int64, error) {
	var hits []models.Product
	for _, p := range s.all() {
		if matches(p, q.Filter) {
			hits = append(hits, p)
		}
	}
	sortProducts(hits, q.Sort)
	return window(hits, q.Skip, q.Limit), int64(len(hits)), nil
}

func (s memProducts) Search(ctx context.Context, keyword string, n int64) ([]models.Product, error) {
	out, _, err := s.Find(ctx, models.ProductQuery{Filter: models.ProductFilter{Keyword: keyword}, Limit: n})
	return out, err
}

func (s memProducts) Latest(ctx context.Context, n int64) ([]models.Product, error) {
	out, _, err := s.Find(ctx, models.ProductQuery{Sort: models.SortCreatedAtDesc, Limit: n})
	return out, err
}

func (s memProducts) TopSelling(_ context.Context, n int64) ([]models.Product, error) {
	ps := s.all()
	slices.SortStableFunc(ps, func(a, b models.Product) int { return cmp.Compare(b.Sold, a.Sold) })
	return window(ps, 0, n), nil
}

func (s memProducts) OnSale(_ context.Context, n int64) ([]models.Product, error) {
	var out []models.Product
	for _, p := range s.all() {
		if p.Sale {
			out = append(out, p)
		}
	}
	return window(out, 0, n), nil
}

func (s memProducts) ByCategory(ctx context.Context, categoryID bson.ObjectID, n int64) ([]models.Product, error) {
	out, _, err := s.Find(ctx, models.ProductQuery{Filter: models.ProductFilter{Category: &categoryID}, Limit: n})
	return out, err
}

func (s memProducts) All(context.Context) ([]models.Product, error) { return s.all(), nil }

func (s memProducts) Insert(_ context.Context, p *models.Product) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.products {
		if other.Name == p.Name {
			return errDuplicate
		}
	}
	p.ID = bson.NewObjectID()
	s.db.products[p.ID] = cloneProduct(*p)
	return nil
}

func (s memProducts) Update(_ context.Context, id bson.ObjectID, u models.ProductUpdate) (*models.Product, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Discount != nil {
		p.Discount = *u.Discount
	}
	if u.Brand != nil {
		p.Brand = *u.Brand
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Sizes != nil {
		p.Sizes = *u.Sizes
	}
	if u.For != nil {
		p.For = *u.For
	}
	if u.Sale != nil {
		p.Sale = *u.Sale
	}
	if u.Images != nil {
		p.Images = *u.Images
	}
	p = cloneProduct(p)
	s.db.products[id] = p
	out := cloneProduct(p)
	return &out, nil
}

func (s memProducts) Delete(_ context.Context, id bson.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.products, id)
	return nil
}

func (s memProducts) DecrementStock(_ context.Context, id bson.ObjectID, qty int) (*models.Product, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Stock < qty {
		out := cloneProduct(p)
		return &out, repository.ErrInsufficientStock
	}
	p.Stock -= qty
	p.Sold += qty
	s.db.products[id] = p
	out := cloneProduct(p)
	return &out, nil
}

func (s memProducts) AddReview(_ context.Context, productID, reviewID bson.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	if !slices.Contains(p.Reviews, reviewID) {
		p.Reviews = append(slices.Clone(p.Reviews), reviewID)
	}
	s.db.products[productID] = p
	return nil
}

func (s memProducts) RemoveReview(_ context.Context, productID, reviewID bson.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p := s.db.products[productID]
	p.Reviews = slices.DeleteFunc(slices.Clone(p.Reviews), func(id bson.ObjectID) bool { return id == reviewID })
	s.db.products[productID] = p
	return nil
}

func (s memProducts) SetRating(_ context.Context, productID bson.ObjectID, rating float64, numReviews int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p := s.db.products[productID]
	p.Rating, p.NumReviews = rating, numReviews
	s.db.products[productID] = p
	return nil
}

func (s memProducts) CountByCategory(_ context.Context, categoryID bson.ObjectID) (int64, error) {
	var n int64
	for _, p := range s.all() {
		if p.Category == categoryID {
			n++
		}
	}
	return n, nil
}

func (s memProducts) Count(context.Context) (int64, error) { return int64(len(s.all())), nil }

func (s memProducts) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	var n int64
	for _, p := range s.all() {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

// ---- categories

type memCategories struct{ db *memDB }

func (s memCategories) Insert(_ context.Context, c *models.Category) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.categories {
		if other.Name == c.Name {
			return errDuplicate
		}
	}
	c.ID = bson.NewObjectID()
	s.db.categories[c.ID] = *c
	return nil
}

func (s memCategories) FindByID(_ context.Context, id bson.ObjectID) (*models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s memCategories) FindByName(_ context.Context, name string) (*models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memCategories) List(_ context.Context, audience models.Audience) ([]models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.Category{}
	for _, c := range s.db.categories {
		if audience == "" || c.For == audience {
			out = append(out, c)
			continue
		}
		for _, p := range s.db.products {
			if p.Category == c.ID && slices.Contains(p.For, audience) {
				out = append(out, c)
				break
			}
		}
	}
	slices.SortFunc(out, func(a, b models.Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s memCategories) Names(context.Context) (map[bson.ObjectID]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make(map[bson.ObjectID]string, len(s.db.categories))
	for id, c := range s.db.categories {
		out[id] = c.Name
	}
	return out, nil
}

func (s memCategories) Delete(_ context.Context, id bson.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.categories, id)
	return nil
}

// ---- orders

type memOrders struct{ db *memDB }

func (s memOrders) Insert(_ context.Context, o *models.Order) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failInsertOrder; err != nil {
		s.db.failInsertOrder = nil
		return err
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	o.ID = bson.NewObjectID()
	cp := *o
	cp.Items = slices.Clone(o.Items)
	s.db.orders[o.ID] = cp
	return nil
}

func (s memOrders) FindByID(_ context.Context, id bson.ObjectID) (*models.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, ok := s.db.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (s memOrders) FindByOrderID(_ context.Context, orderID string) (*models.Order, error) {
	for _, o := range s.sorted() {
		if o.OrderID == orderID {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

// sorted returns orders newest first.
func (s memOrders) sorted() []models.Order {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]models.Order, 0, len(s.db.orders))
	for _, o := range s.db.orders {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b models.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.Hex(), a.ID.Hex())
	})
	return out
}

func (s memOrders) FindByUser(_ context.Context, userID bson.ObjectID, skip, limit int64) ([]models.Order, int64, error) {
	var mine []models.Order
	for _, o := range s.sorted() {
		if o.UserID == userID {
			mine = append(mine, o)
		}
	}
	return window(mine, skip, limit), int64(len(mine)), nil
}

func (s memOrders) List(_ context.Context, skip, limit int64) ([]models.Order, int64, error) {
	all := s.sorted()
	return window(all, skip, limit), int64(len(all)), nil
}

func (s memOrders) Latest(_ context.Context, n int64) ([]models.Order, error) {
	return window(s.sorted(), 0, n), nil
}

func (s memOrders) UpdateStatus(_ context.Context, id bson.ObjectID, from, to models.OrderStatus) (*models.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, ok := s.db.orders[id]
	if !ok || o.Status != from {
		return nil, repository.ErrStaleStatus
	}
	o.Status = to
	s.db.orders[id] = o
	return &o, nil
}

func (s memOrders) Delete(_ context.Context, id bson.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.orders, id)
	return nil
}

func (s memOrders) Count(context.Context) (int64, error) { return int64(len(s.sorted())), nil }

func (s memOrders) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	var n int64
	for _, o := range s.sorted() {
		if !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s memOrders) PointsSince(_ context.Context, since time.Time) ([]models.OrderPoint, error) {
	var out []models.OrderPoint
	for _, o := range s.sorted() {
		if !o.CreatedAt.Before(since) {
			out = append(out, models.OrderPoint{CreatedAt: o.CreatedAt, Total: o.Total, Status: o.Status})
		}
	}
	return out, nil
}

func (s memOrders) StatusCounts(context.Context) (map[models.OrderStatus]int64, error) {
	out := map[models.OrderStatus]int64{}
	for _, o := range s.sorted() {
		out[o.Status]++
	}
	return out, nil
}

// ---- users

type memUsers struct{ db *memDB }

func (s memUsers) Insert(_ context.Context, u *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.users {
		if other.Email == u.Email {
			return errDuplicate
		}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Wishlist == nil {
		u.Wishlist = []bson.ObjectID{}
	}
	u.ID = bson.NewObjectID()
	s.db.users[u.ID] = cloneUser(*u)
	return nil
}

func (s memUsers) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (s memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Email == email {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) Update(_ context.Context, id bson.ObjectID, upd models.UserUpdate) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Gender != nil {
		u.Gender = *upd.Gender
	}
	if upd.Avatar != nil {
		img := *upd.Avatar
		u.Avatar = &img
	}
	s.db.users[id] = u
	u = cloneUser(u)
	return &u, nil
}

func (s memUsers) AddToWishlist(_ context.Context, userID, productID bson.ObjectID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[userID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if slices.Contains(u.Wishlist, productID) {
		return false, nil
	}
	u.Wishlist = append(slices.Clone(u.Wishlist), productID)
	s.db.users[userID] = u
	return true, nil
}

func (s memUsers) RemoveFromWishlist(_ context.Context, userID, productID bson.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Wishlist = slices.DeleteFunc(slices.Clone(u.Wishlist), func(id bson.ObjectID) bool { return id == productID })
	s.db.users[userID] = u
	return nil
}

func (s memUsers) SetResetToken(_ context.Context, id bson.ObjectID, tokenHash string, expire time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetPasswordToken, u.ResetPasswordExpire = tokenHash, &expire
	s.db.users[id] = u
	return nil
}

func (s memUsers) ClearResetToken(_ context.Context, id bson.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u := s.db.users[id]
	u.ResetPasswordToken, u.ResetPasswordExpire = "", nil
	s.db.users[id] = u
	return nil
}

func (s memUsers) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.ResetPasswordToken != "" && u.ResetPasswordToken == tokenHash &&
			u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now) {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) ResetPassword(_ context.Context, id bson.ObjectID, passwordHash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetPasswordToken, u.ResetPasswordExpire = "", nil
	s.db.users[id] = u
	return nil
}

func (s memUsers) Count(context.Context) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return int64(len(s.db.users)), nil
}

func (s memUsers) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, u := range s.db.users {
		if !u.CreatedAt.Before(from) && u.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

// ---- reviews

type memReviews struct{ db *memDB }

func (s memReviews) Insert(_ context.Context, rv *models.Review) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.reviews {
		if other.User == rv.User && other.Product == rv.Product {
			return errDuplicate
		}
	}
	rv.ID = bson.NewObjectID()
	rv.CreatedAt = time.Now().UTC()
	s.db.reviews[rv.ID] = *rv
	return nil
}

func (s memReviews) FindByID(_ context.Context, id bson.ObjectID) (*models.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	rv, ok := s.db.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rv, nil
}

func (s memReviews) Exists(_ context.Context, userID, productID bson.ObjectID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, rv := range s.db.reviews {
		if rv.User == userID && rv.Product == productID {
			return true, nil
		}
	}
	return false, nil
}

func (s memReviews) ListWithAuthors(_ context.Context, productID bson.ObjectID) ([]models.ReviewWithAuthor, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.ReviewWithAuthor{}
	for _, rv := range s.db.reviews {
		if rv.Product != productID {
			continue
		}
		item := models.ReviewWithAuthor{Review: rv}
		if u, ok := s.db.users[rv.User]; ok {
			item.Author = &models.ReviewAuthor{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
		}
		out = append(out, item)
	}
	return out, nil
}

func (s memReviews) Ratings(_ context.Context, productID bson.ObjectID) ([]float64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []float64
	for _, rv := range s.db.reviews {
		if rv.Product == productID {
			out = append(out, rv.Rating)
		}
	}
	return out, nil
}

func (s memReviews) Delete(_ context.Context, id bson.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.reviews, id)
	return nil
}

func (s memReviews) DeleteByProduct(_ context.Context, productID bson.ObjectID) ([]models.Image, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var images []models.Image
	for id, rv := range s.db.reviews {
		if rv.Product == productID {
			images = append(images, rv.Image...)
			delete(s.db.reviews, id)
		}
	}
	return images, nil
}

// errDuplicate mimics a Mongo duplicate key error closely enough for utils.IsDuplicateKey.
var errDuplicate = errors.New("E11000 duplicate key error")

// ---- adapters

type fakeImages struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	failOn   int // 1-based upload number to fail; 0 never fails
	calls    int
}

func (f *fakeImages) Upload(_ context.Context, folder string, fh *multipart.FileHeader) (models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return models.Image{}, errors.New("bucket unavailable")
	}
	id := folder + "/" + fh.Filename
	f.uploaded = append(f.uploaded, id)
	return models.Image{PublicID: id, URL: "https://cdn.test/" + id}, nil
}

func (f *fakeImages) Delete(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeMailer struct {
	mu         sync.Mutex
	invoices   []string
	resetLinks []string
	err        error
}

func (f *fakeMailer) SendInvoice(_ context.Context, to, orderID string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.invoices = append(f.invoices, to+":"+orderID)
	return nil
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.resetLinks = append(f.resetLinks, url)
	return nil
}

type fakeInvoices struct{ err error }

func (f fakeInvoices) Render(*models.Order, *models.User) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.3 test"), nil
}

type fakeVerifier struct{ ok bool }

func (f fakeVerifier) Verify(_, _, _ string) bool { return f.ok }

type fakeGateway struct {
	amount  int64
	receipt string
	err     error
	charged map[string]int64
}

func (f *fakeGateway) FetchOrder(_ context.Context, id string) (*payment.GatewayOrder, error) {
	amount, ok := f.charged[id]
	if !ok {
		return nil, errors.New("order not found")
	}
	return &payment.GatewayOrder{ID: id, Amount: amount, AmountPaid: amount, Currency: "INR", Status: "paid"}, nil
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

func (f *fakeGateway) CreateOrder(_ context.Context, amount int64, receipt string) (*payment.GatewayOrder, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.amount, f.receipt = amount, receipt
	return &payment.GatewayOrder{ID: "order_test", Amount: amount, Currency: "INR", Receipt: receipt, Status: "created"}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingBroadcaster) Broadcast(msgType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msgType)
}

type countingCache struct {
	mu          sync.Mutex
	invalidated int
	sets        int
	keys        []string
}

func (c *countingCache) Get(context.Context, string, any) (bool, error) { return false, nil }

func (c *countingCache) Set(_ context.Context, key string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.keys = append(c.keys, key)
	return nil
}

func (c *countingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	return nil
}

func (c *countingCache) invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated
}

type countingMetrics struct {
	mu       sync.Mutex
	created  int
	failures map[string]int
	invoice  int
}

func (m *countingMetrics) OrderCreated(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *countingMetrics) CheckoutFailed(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = map[string]int{}
	}
	m.failures[kind]++
}

func (m *countingMetrics) InvoiceFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoice++
}

func fileHeader(name string) *multipart.FileHeader {
	return &multipart.FileHeader{Filename: name, Size: 10}
}
