package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"
	"unicode"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/cache"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/repository"
	"github.com/fashalt/fashaltbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	avatarFolder  = "avatars"
	resetTokenTTL = 15 * time.Minute
)

type UserDeps struct {
	Users     UserStore
	Products  ProductStore
	Images    ImageStore
	Mailer    Mailer
	JWTSecret string
	TokenTTL  time.Duration
	ClientURL string
	Cache     DashboardCache
	Now       func() time.Time
}

type UserService struct {
	users     UserStore
	products  ProductStore
	images    ImageStore
	mailer    Mailer
	secret    string
	ttl       time.Duration
	clientURL string
	dashboard DashboardCache
	now       func() time.Time
}

func NewUserService(d UserDeps) *UserService {
	s := &UserService{
		users: d.Users, products: d.Products, images: d.Images, mailer: d.Mailer,
		secret: d.JWTSecret, ttl: d.TokenTTL, clientURL: strings.TrimRight(d.ClientURL, "/"), dashboard: d.Cache, now: d.Now,
	}
	if s.dashboard == nil {
		s.dashboard = cache.Noop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// AuthResult is a user together with a freshly signed access token.
type AuthResult struct {
	User  *models.User
	Token string
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Gender   string
	PhoneNo  string
}

type ProfileChanges struct {
	Name     string
	Email    string
	Password string
	Gender   string
}

// Profile is a user with the wishlist expanded into products.
type Profile struct {
	*models.User
	WishlistItems []models.Product `json:"wishlistItems"`
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func parseGender(raw string) (models.Gender, error) {
	switch g := models.Gender(strings.ToLower(strings.TrimSpace(raw))); g {
	case models.GenderMale, models.GenderFemale:
		return g, nil
	}
	return "", apperr.Validation("Gender must be 'male' or 'female'")
}

// ValidatePassword enforces length and character-class rules.
func ValidatePassword(pw string) error {
	var problems []string
	if len(pw) < 6 {
		problems = append(problems, "Password must be at least 6 characters long")
	}
	var digit, letter, special bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		default:
			special = true
		}
	}
	if !digit {
		problems = append(problems, "Password must contain at least one number")
	}
	if !letter {
		problems = append(problems, "Password must contain at least one letter")
	}
	if !special {
		problems = append(problems, "Password must contain at least one special character")
	}
	if len(problems) > 0 {
		return apperr.Validation("%s", strings.Join(problems, ", "))
	}
	return nil
}

func validPhone(p string) bool {
	if len(p) != 10 {
		return false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *UserService) issue(u *models.User) (*AuthResult, error) {
	token, err := utils.GenerateAccessToken(s.secret, u.ID.Hex(), string(u.Role), s.ttl)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to issue token")
	}
	return &AuthResult{User: u, Token: token}, nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput, avatar *multipart.FileHeader) (*AuthResult, error) {
	in.Name, in.Email, in.PhoneNo = strings.TrimSpace(in.Name), normalizeEmail(in.Email), strings.TrimSpace(in.PhoneNo)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Gender == "" || in.PhoneNo == "" {
		return nil, apperr.Validation("All fields are required")
	}
	if !validPhone(in.PhoneNo) {
		return nil, apperr.Validation("Phone number must be 10 digits")
	}
	gender, err := parseGender(in.Gender)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflict("User already exist")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(err, "Failed to check user")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to hash password")
	}
	img, err := uploadOne(ctx, s.images, avatarFolder, avatar)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Gender:       gender,
		PhoneNo:      in.PhoneNo,
		Avatar:       img,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		if img != nil {
			dropImages(ctx, s.images, []models.Image{*img})
		}
		if utils.IsDuplicateKey(err) {
			return nil, apperr.Conflict("User already exist")
		}
		return nil, apperr.Internal(err, "Failed to register user")
	}
	logger.Info(ctx, "user registered", "user_id", u.ID.Hex())
	invalidateDashboard(ctx, s.dashboard)
	return s.issue(u)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email or Password is required")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Auth("Invalid Email or Password")
	}
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load user")
	}
	if err := utils.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, apperr.Auth("Invalid Email or Password")
	}
	return s.issue(u)
}

func (s *UserService) Profile(ctx context.Context, userID bson.ObjectID) (*Profile, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	items, err := s.wishlistProducts(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, WishlistItems: items}, nil
}

// UpdateProfile changes the given fields; a new avatar replaces and deletes the old one.
func (s *UserService) UpdateProfile(ctx context.Context, userID bson.ObjectID, ch ProfileChanges, avatar *multipart.FileHeader) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}

	var upd models.UserUpdate
	if name := strings.TrimSpace(ch.Name); name != "" {
		upd.Name = &name
	}
	if email := normalizeEmail(ch.Email); email != "" && email != u.Email {
		if other, err := s.users.FindByEmail(ctx, email); err == nil && other.ID != u.ID {
			return nil, apperr.Conflict("Email is already in use")
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Internal(err, "Failed to check email")
		}
		upd.Email = &email
	}
	if ch.Password != "" {
		if err := ValidatePassword(ch.Password); err != nil {
			return nil, err
		}
		hash, err := utils.HashPassword(ch.Password)
		if err != nil {
			return nil, apperr.Internal(err, "Failed to hash password")
		}
		upd.PasswordHash = &hash
	}
	if ch.Gender != "" {
		g, err := parseGender(ch.Gender)
		if err != nil {
			return nil, err
		}
		upd.Gender = &g
	}

	img, err := uploadOne(ctx, s.images, avatarFolder, avatar)
	if err != nil {
		return nil, err
	}
	upd.Avatar = img

	updated, err := s.users.Update(ctx, userID, upd)
	if err != nil {
		if img != nil {
			dropImages(ctx, s.images, []models.Image{*img})
		}
		if utils.IsDuplicateKey(err) {
			return nil, apperr.Conflict("Email is already in use")
		}
		return nil, storeErr(err, "User not found")
	}
	if img != nil && u.Avatar != nil {
		dropImages(ctx, s.images, []models.Image{*u.Avatar})
	}
	return updated, nil
}

func (s *UserService) wishlistProducts(ctx context.Context, u *models.User) ([]models.Product, error) {
	if len(u.Wishlist) == 0 {
		return []models.Product{}, nil
	}
	products, err := s.products.FindByIDs(ctx, u.Wishlist)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load wishlist")
	}
	return products, nil
}

func (s *UserService) AddToWishlist(ctx context.Context, userID bson.ObjectID, productID string) error {
	pid, err := parseID(productID, "product")
	if err != nil {
		return err
	}
	if _, err := s.products.FindByID(ctx, pid); err != nil {
		return storeErr(err, "Product not found")
	}
	added, err := s.users.AddToWishlist(ctx, userID, pid)
	if err != nil {
		return storeErr(err, "User not found")
	}
	if !added {
		return apperr.Conflict("Product already in wishlist")
	}
	return nil
}

func (s *UserService) RemoveFromWishlist(ctx context.Context, userID bson.ObjectID, productID string) error {
	pid, err := parseID(productID, "product")
	if err != nil {
		return err
	}
	return storeErr(s.users.RemoveFromWishlist(ctx, userID, pid), "User not found")
}

func (s *UserService) Wishlist(ctx context.Context, userID bson.ObjectID) ([]models.Product, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	return s.wishlistProducts(ctx, u)
}

// ForgotPassword stores a hashed one-time token and mails the raw token as a link.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validation("Email is required")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return storeErr(err, "Please enter a valid email")
	}
	raw, hashed, err := utils.NewResetToken()
	if err != nil {
		return apperr.Internal(err, "Failed to create reset token")
	}
	if err := s.users.SetResetToken(ctx, u.ID, hashed, s.now().Add(resetTokenTTL)); err != nil {
		return storeErr(err, "User not found")
	}

	url := s.clientURL + "/resetpassword/" + raw
	if err := s.mailer.SendPasswordReset(ctx, u.Email, url); err != nil {
		if cerr := s.users.ClearResetToken(ctx, u.ID); cerr != nil {
			logger.Warn(ctx, "failed to clear reset token", "user_id", u.ID.Hex(), "error", cerr)
		}
		return apperr.Internal(err, "Failed to send reset email")
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, rawToken, password string) error {
	if strings.TrimSpace(rawToken) == "" {
		return apperr.Validation("Reset token is required")
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	u, err := s.users.FindByResetToken(ctx, utils.HashResetToken(rawToken), s.now())
	if err != nil {
		return storeErr(err, "Your reset password link has been expired")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return apperr.Internal(err, "Failed to hash password")
	}
	return storeErr(s.users.ResetPassword(ctx, u.ID, hash), "User not found")
}
