package purchase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/inkwell/inkwell-api/internal/domain/catalog"
	"github.com/inkwell/inkwell-api/internal/pkg/omise"
)

const gatewayName = "omise"

// Gateway is the slice of the Omise client the orchestrator uses.
type Gateway interface {
	CreateSource(ctx context.Context, sourceType string, amount int64, currency string) (*omise.Source, error)
	CreateCharge(ctx context.Context, req omise.CreateChargeRequest) (*omise.Charge, error)
}

// Config carries the settlement secrets and URLs injected at
// construction.
type Config struct {
	// WebhookSecret signs gateway callbacks. Empty disables verification
	// for environments that have no signing secret configured.
	WebhookSecret    string
	DefaultReturnURI string
}

var supportedMethods = map[string]string{
	"promptpay": "promptpay",
	"truemoney": "truemoney",
}

type Service struct {
	repo    *Repository
	catalog *catalog.Service
	gateway Gateway
	cfg     Config
}

func NewService(repo *Repository, catalogSvc *catalog.Service, gateway Gateway, cfg Config) *Service {
	if cfg.WebhookSecret == "" {
		log.Warn().Msg("webhook signing secret not configured, signature verification disabled")
	}
	return &Service{repo: repo, catalog: catalogSvc, gateway: gateway, cfg: cfg}
}

// CheckoutRequest is the validated checkout input.
type CheckoutRequest struct {
	CoinPackID    uuid.UUID
	PaymentMethod string
	ReturnURI     string
}

// CreateCheckout creates a gateway charge for a coin pack and records a
// PENDING intent carrying the coins snapshot. A gateway failure leaves
// nothing persisted.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*CheckoutResponse, error) {
	sourceType, ok := supportedMethods[req.PaymentMethod]
	if !ok {
		return nil, ErrUnsupportedMethod
	}

	pack, err := s.catalog.GetPack(ctx, req.CoinPackID)
	if err != nil || !pack.IsActive {
		return nil, ErrInvalidPack
	}

	returnURI := req.ReturnURI
	if returnURI == "" {
		returnURI = s.cfg.DefaultReturnURI
	}

	source, err := s.gateway.CreateSource(ctx, sourceType, pack.Price, "THB")
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID.String()).
			Str("pack_id", pack.ID.String()).
			Msg("gateway source creation failed")
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	charge, err := s.gateway.CreateCharge(ctx, omise.CreateChargeRequest{
		Amount:    pack.Price,
		Currency:  "THB",
		SourceID:  source.ID,
		ReturnURI: returnURI,
	})
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID.String()).
			Str("pack_id", pack.ID.String()).
			Msg("gateway charge creation failed")
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	payload, err := json.Marshal(charge)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot charge", ErrInternal)
	}

	intent, err := s.repo.CreateIntent(ctx, CreateIntentParams{
		UserID:         userID,
		CoinPackID:     pack.ID,
		CoinsGranted:   pack.TotalCoins(),
		PaidAmount:     pack.Price,
		PaymentGateway: gatewayName,
		GatewayTxID:    charge.ID,
		PaymentMethod:  req.PaymentMethod,
		GatewayPayload: payload,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("intent_id", intent.ID.String()).
		Str("charge_id", charge.ID).
		Int64("coins_granted", intent.CoinsGranted).
		Msg("checkout created")

	return &CheckoutResponse{
		IntentID:      intent.ID,
		ChargeID:      charge.ID,
		PaymentMethod: req.PaymentMethod,
		Amount:        pack.Price,
		QRCodeURL:     charge.QRCodeURL(),
		AuthorizeURI:  charge.AuthorizeURI,
		ExpiresAt:     charge.ExpiresAt,
	}, nil
}

// HandleWebhook settles a purchase from an authenticated gateway
// callback. Exactly one terminal transition per gateway transaction;
// everything else is a no-op the gateway sees as success.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*SettlementResult, error) {
	if s.cfg.WebhookSecret != "" {
		if !omise.VerifySignature(rawBody, signature, s.cfg.WebhookSecret) {
			log.Warn().Msg("webhook rejected: invalid signature")
			return nil, ErrInvalidSignature
		}
	}

	event, err := omise.ParseWebhook(rawBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if event.Key != omise.EventChargeComplete {
		log.Debug().Str("event", event.Key).Msg("webhook event ignored")
		return &SettlementResult{Outcome: OutcomeNoop}, nil
	}

	charge, err := event.Charge()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	result, err := s.repo.Settle(ctx, charge.ID, func(tx *sqlx.Tx, intent *Intent) (SettlementOutcome, error) {
		switch charge.Status {
		case omise.ChargeStatusSuccessful:
			if err := s.repo.CompleteTx(ctx, tx, intent); err != nil {
				return "", err
			}
			return OutcomeCompleted, nil
		case omise.ChargeStatusFailed:
			if err := s.repo.FailTx(ctx, tx, intent, deref(charge.FailureCode), deref(charge.FailureMessage)); err != nil {
				return "", err
			}
			return OutcomeFailed, nil
		case omise.ChargeStatusExpired:
			if err := s.repo.ExpireTx(ctx, tx, intent); err != nil {
				return "", err
			}
			return OutcomeExpired, nil
		default:
			return OutcomeNoop, nil
		}
	})
	if err != nil {
		if err == ErrUnknownTransaction {
			log.Error().Str("charge_id", charge.ID).Msg("webhook for unknown gateway transaction")
		}
		return nil, err
	}

	log.Info().
		Str("charge_id", charge.ID).
		Str("intent_id", result.Intent.ID.String()).
		Str("outcome", string(result.Outcome)).
		Msg("webhook settled")
	return result, nil
}

// GetHistory returns the user's purchase intents, newest first.
func (s *Service) GetHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Intent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// ExpireStale marks PENDING intents older than the window EXPIRED. Run
// from the sweeper; the engine tolerates it never running.
func (s *Service) ExpireStale(ctx context.Context, window time.Duration) (int64, error) {
	n, err := s.repo.ExpireStale(ctx, time.Now().Add(-window))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("count", n).Dur("window", window).Msg("stale intents expired")
	}
	return n, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
