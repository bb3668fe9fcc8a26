// Package ledger owns writes to ambassadors, brands and contracts and
// enforces their uniqueness and referential rules.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/app/repository"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
)

// RecentWindow is how far back the dashboard lists contracts.
const RecentWindow = 30 * 24 * time.Hour

// CustomerProvisioner creates the processor customer that pays for a brand's contracts.
type CustomerProvisioner interface {
	CreateCustomer(ctx context.Context, email, description string) (*processor.Customer, error)
}

type Service struct {
	repos     *repository.Repositories
	customers CustomerProvisioner
	intn      func(n int) int
	now       func() time.Time
	currency  string
}

// NewService creates a ledger service. customers may be nil when brands are
// never created through this service.
func NewService(repos *repository.Repositories, customers CustomerProvisioner, currency string) *Service {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &Service{
		repos:     repos,
		customers: customers,
		intn:      rand.IntN,
		now:       time.Now,
		currency:  currency,
	}
}

// Currency is the settlement currency new contracts are created in.
func (s *Service) Currency() string {
	return s.currency
}

// CreateAmbassador registers an account and advances it to the profile step.
func (s *Service) CreateAmbassador(ctx context.Context, email, password string) (*models.Ambassador, error) {
	a, err := models.NewAmbassador(email, password)
	if err != nil {
		return nil, err
	}
	exists, err := s.repos.Ambassador.EmailExists(ctx, a.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.Invalid("email", "is already registered")
	}
	if err := a.Advance(models.OnboardingProfile); err != nil {
		return nil, err
	}
	if err := s.repos.Ambassador.Create(ctx, a); err != nil {
		// the unique index catches a concurrent signup the pre-check missed
		var verr *apperror.ValidationError
		if errors.As(apperror.FromGorm(err, "ambassador"), &verr) {
			return nil, apperror.Invalid("email", "is already registered")
		}
		return nil, err
	}
	return a, nil
}

// UpdateProfile stores the ambassador's name and advances them to the payout step.
func (s *Service) UpdateProfile(ctx context.Context, ambassador *models.Ambassador, firstName, lastName string) error {
	ambassador.FirstName = strings.TrimSpace(firstName)
	ambassador.LastName = strings.TrimSpace(lastName)
	if !ambassador.HasProfile() {
		return apperror.Invalid("name", "first and last name are required")
	}
	if err := ambassador.Validate(); err != nil {
		return err
	}
	if ambassador.Step() == models.OnboardingProfile {
		if err := ambassador.Advance(models.OnboardingPayout); err != nil {
			return err
		}
	}
	return s.repos.Ambassador.Update(ctx, ambassador)
}

func (s *Service) GetAmbassador(ctx context.Context, id uint) (*models.Ambassador, error) {
	a, err := s.repos.Ambassador.GetByID(ctx, id)
	return a, apperror.FromGorm(err, "ambassador")
}

func (s *Service) GetAmbassadorByEmail(ctx context.Context, email string) (*models.Ambassador, error) {
	a, err := s.repos.Ambassador.GetByEmail(ctx, strings.TrimSpace(email))
	return a, apperror.FromGorm(err, "ambassador")
}

// FirstOnboardedAmbassador returns the oldest ambassador with a payout destination.
func (s *Service) FirstOnboardedAmbassador(ctx context.Context) (*models.Ambassador, error) {
	a, err := s.repos.Ambassador.FirstOnboarded(ctx)
	return a, apperror.FromGorm(err, "onboarded ambassador")
}

// LatestOnboardedAmbassador returns the newest ambassador with a payout destination.
func (s *Service) LatestOnboardedAmbassador(ctx context.Context) (*models.Ambassador, error) {
	a, err := s.repos.Ambassador.LatestOnboarded(ctx)
	return a, apperror.FromGorm(err, "onboarded ambassador")
}

// CreateBrand validates and stores a brand with a freshly provisioned customer.
func (s *Service) CreateBrand(ctx context.Context, clientEmail, tribeEmail, name string) (*models.Brand, error) {
	b := &models.Brand{
		ClientEmail: clientEmail,
		TribeEmail:  tribeEmail,
		Name:        strings.TrimSpace(name),
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repos.Brand.GetByClientEmail(ctx, b.ClientEmail); err == nil {
		return nil, apperror.Invalid("client_email", "is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.provisionCustomer(ctx, b); err != nil {
		return nil, err
	}
	if err := s.repos.Brand.Create(ctx, b); err != nil {
		return nil, apperror.FromGorm(err, "brand")
	}
	return b, nil
}

// EnsureCustomer provisions a processor customer for a brand that has none yet.
func (s *Service) EnsureCustomer(ctx context.Context, brand *models.Brand) error {
	if brand.HasCustomer() {
		return nil
	}
	if err := s.provisionCustomer(ctx, brand); err != nil {
		return err
	}
	if err := s.repos.Brand.SetCustomerID(ctx, brand.ID, brand.StripeCustomerID); err != nil {
		return apperror.FromGorm(err, "brand")
	}
	fiberlog.Infof("[Ledger] provisioned customer for brand %d", brand.ID)
	return nil
}

func (s *Service) provisionCustomer(ctx context.Context, brand *models.Brand) error {
	if s.customers == nil {
		return errors.New("ledger: no customer provisioner configured")
	}
	cus, err := s.customers.CreateCustomer(ctx, brand.ClientEmail, brand.Name)
	if err != nil {
		return fmt.Errorf("create customer for brand %q: %w", brand.ClientEmail, err)
	}
	brand.StripeCustomerID = cus.ID
	return nil
}

// InsertDefaultBrands seeds the demo brands when no brand exists yet.
func (s *Service) InsertDefaultBrands(ctx context.Context) error {
	count, err := s.repos.Brand.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, b := range models.DefaultBrands() {
		if _, err := s.CreateBrand(ctx, b.ClientEmail, b.TribeEmail, b.Name); err != nil {
			var verr *apperror.ValidationError
			if errors.As(err, &verr) {
				// another request seeded the same brand first
				continue
			}
			return err
		}
	}
	fiberlog.Info("[Ledger] inserted default brands")
	return nil
}

// RandomBrand returns a uniformly chosen brand, seeding the defaults first if needed.
func (s *Service) RandomBrand(ctx context.Context) (*models.Brand, error) {
	if err := s.InsertDefaultBrands(ctx); err != nil {
		return nil, err
	}
	count, err := s.repos.Brand.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, apperror.NotFound("brand")
	}
	b, err := s.repos.Brand.GetAt(ctx, s.intn(int(count)))
	return b, apperror.FromGorm(err, "brand")
}

// LatestBrand returns the most recently created brand.
func (s *Service) LatestBrand(ctx context.Context) (*models.Brand, error) {
	b, err := s.repos.Brand.Latest(ctx)
	return b, apperror.FromGorm(err, "brand")
}

func (s *Service) GetBrand(ctx context.Context, id uint) (*models.Brand, error) {
	b, err := s.repos.Brand.GetByID(ctx, id)
	return b, apperror.FromGorm(err, "brand")
}

// BrandByName looks a brand up by display name.
func (s *Service) BrandByName(ctx context.Context, name string) (*models.Brand, error) {
	b, err := s.repos.Brand.GetByName(ctx, strings.TrimSpace(name))
	return b, apperror.FromGorm(err, "brand")
}

// CreateContract inserts a pending contract after checking both references exist.
// It never calls the processor.
func (s *Service) CreateContract(ctx context.Context, ambassadorID, brandID uint, postLink string, amount int64) (*models.Contract, error) {
	c, err := models.NewContract(ambassadorID, brandID, postLink, amount, s.currency)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetAmbassador(ctx, ambassadorID); err != nil {
		return nil, err
	}
	if _, err := s.GetBrand(ctx, brandID); err != nil {
		return nil, err
	}
	if err := s.repos.Contract.Create(ctx, c); err != nil {
		return nil, apperror.FromGorm(err, "contract")
	}
	return c, nil
}

func (s *Service) GetContract(ctx context.Context, uuid string) (*models.Contract, error) {
	c, err := s.repos.Contract.GetByUUID(ctx, strings.TrimSpace(uuid))
	return c, apperror.FromGorm(err, "contract")
}

// RecentContracts lists the ambassador's contracts of the last 30 days, newest first.
func (s *Service) RecentContracts(ctx context.Context, ambassadorID uint) ([]models.Contract, error) {
	return s.repos.Contract.ListByAmbassadorSince(ctx, ambassadorID, s.now().Add(-RecentWindow))
}
