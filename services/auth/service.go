package auth

import (
	"context"
	"errors"
	"strings"

	"pawsewa/apperrors"
	"pawsewa/logger"
	"pawsewa/models/user"
	"pawsewa/services/policy"
	"pawsewa/types"
	userTypes "pawsewa/types/user"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	DB     *gorm.DB
	Tokens *TokenManager
	Cost   int
}

func NewAuthService(db *gorm.DB, tokens *TokenManager) *AuthService {
	return &AuthService{DB: db, Tokens: tokens, Cost: bcrypt.DefaultCost}
}

func ToProfile(u *user.User) userTypes.Profile {
	return userTypes.Profile{
		ID:                      u.ID,
		Name:                    u.Name,
		Email:                   u.Email,
		Phone:                   u.Phone,
		Role:                    string(u.Role),
		Specialization:          u.Specialization,
		BusinessLicenseVerified: u.BusinessLicenseVerified,
		CreatedAt:               u.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// cleanPhone strips spaces, dashes and brackets. A non-empty result must be ten digits.
func cleanPhone(phone string) (string, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, phone)
	if clean == "" {
		return "", nil
	}
	if len(clean) != 10 || strings.IndexFunc(clean, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", apperrors.Validation("Phone number must be exactly 10 digits")
	}
	return clean, nil
}

func (s *AuthService) create(ctx context.Context, u *user.User, password string) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&user.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return apperrors.Internal(err, "failed to check email")
	}
	if count > 0 {
		return apperrors.ErrDuplicate.Msgf("An account with this email already exists. Please login instead.")
	}
	if u.Phone != "" {
		if err := s.DB.WithContext(ctx).Model(&user.User{}).Where("phone = ?", u.Phone).Count(&count).Error; err != nil {
			return apperrors.Internal(err, "failed to check phone")
		}
		if count > 0 {
			return apperrors.ErrDuplicate.Msgf("An account with this phone number already exists. Please login instead.")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		return apperrors.Internal(err, "failed to hash password")
	}
	u.PasswordHash = string(hash)
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return apperrors.Internal(err, "failed to create user")
	}
	return nil
}

// Register opens a pet owner account. Every other role is created by an admin.
func (s *AuthService) Register(ctx context.Context, in userTypes.RegisterRequest) (*userTypes.Profile, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := types.Validate(in); err != nil {
		return nil, err
	}
	phone, err := cleanPhone(in.Phone)
	if err != nil {
		return nil, err
	}

	u := user.User{Name: in.Name, Email: in.Email, Phone: phone, Role: user.RolePetOwner}
	if err := s.create(ctx, &u, in.Password); err != nil {
		return nil, err
	}
	logger.Success("User registered: " + u.Email)
	out := ToProfile(&u)
	return &out, nil
}

func (s *AuthService) Login(ctx context.Context, in userTypes.LoginRequest) (*userTypes.Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := types.Validate(in); err != nil {
		return nil, err
	}

	var u user.User
	err := s.DB.WithContext(ctx).Where("email = ?", in.Email).First(&u).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal(err, "failed to load user")
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, apperrors.Auth("Invalid email or password")
	}

	token, expires, err := s.Tokens.Issue(&u)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to issue token")
	}
	return &userTypes.Session{Profile: ToProfile(&u), Token: token, ExpiresAt: expires}, nil
}

// CreateStaff lets an admin open an account with any role.
func (s *AuthService) CreateStaff(ctx context.Context, actor policy.Actor, in userTypes.CreateStaffRequest) (*userTypes.Profile, error) {
	if !actor.CanManageStaff() {
		return nil, apperrors.Forbidden("Not authorized as admin")
	}
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := types.Validate(in); err != nil {
		return nil, err
	}
	role := user.Role(in.Role)
	if !role.IsValid() {
		return nil, apperrors.Validation("Invalid role. Must be one of: pet_owner, veterinarian, admin, rider, care_service, shop_owner, hostel_owner, service_provider")
	}
	phone, err := cleanPhone(in.Phone)
	if err != nil {
		return nil, err
	}

	u := user.User{
		Name:           in.Name,
		Email:          in.Email,
		Phone:          phone,
		Role:           role,
		Specialization: strings.TrimSpace(in.Specialization),
	}
	if err := s.create(ctx, &u, in.Password); err != nil {
		return nil, err
	}
	logger.Success(string(role) + " account created: " + u.Email)
	out := ToProfile(&u)
	return &out, nil
}

// ListStaff returns staff accounts, optionally of one role, by name.
func (s *AuthService) ListStaff(ctx context.Context, actor policy.Actor, role string) ([]userTypes.Profile, error) {
	if !actor.CanManageStaff() {
		return nil, apperrors.Forbidden("Not authorized as admin")
	}
	q := s.DB.WithContext(ctx).Where("role <> ?", user.RolePetOwner)
	if role != "" {
		if !user.Role(role).IsValid() {
			return nil, apperrors.Validation("Invalid role filter")
		}
		q = q.Where("role = ?", role)
	}
	var users []user.User
	if err := q.Order("name ASC").Find(&users).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to list staff")
	}
	out := make([]userTypes.Profile, 0, len(users))
	for i := range users {
		out = append(out, ToProfile(&users[i]))
	}
	return out, nil
}

func (s *AuthService) Profile(ctx context.Context, actor policy.Actor) (*userTypes.Profile, error) {
	var u user.User
	err := s.DB.WithContext(ctx).First(&u, actor.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load user")
	}
	out := ToProfile(&u)
	return &out, nil
}

// Resolve turns a bearer token into the current actor. The role is read from the database
// so a changed role takes effect without a new login.
func (s *AuthService) Resolve(ctx context.Context, token string) (policy.Actor, error) {
	claims, err := s.Tokens.Parse(token)
	if errors.Is(err, ErrTokenExpired) {
		return policy.Actor{}, apperrors.Auth("Not authorized, token expired")
	}
	if err != nil {
		return policy.Actor{}, apperrors.Auth("Not authorized, invalid token")
	}
	id, err := claims.UserID()
	if err != nil {
		return policy.Actor{}, apperrors.Auth("Not authorized, invalid token")
	}

	var u user.User
	err = s.DB.WithContext(ctx).Select("id", "name", "role").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return policy.Actor{}, apperrors.Auth("User not found")
	}
	if err != nil {
		return policy.Actor{}, apperrors.Internal(err, "failed to load user")
	}
	return policy.NewActor(u.ID, u.Role, u.Name), nil
}
