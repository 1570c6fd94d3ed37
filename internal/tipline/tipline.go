// Package tipline recibe los avisos enviados desde el portal, los
// persiste y notifica al equipo por email.
package tipline

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hccommerce/portal/internal/email"
	"github.com/hccommerce/portal/internal/observability/logger"
)

// Tip es un aviso enviado por un usuario autenticado.
type Tip struct {
	ID        string
	UserID    string
	Subject   string
	Body      string
	CreatedAt time.Time
}

const (
	maxSubjectLen = 200
	maxBodyLen    = 5000
)

var ErrInvalid = errors.New("tipline: invalid tip")

// Store persiste tips.
type Store interface {
	CreateTip(ctx context.Context, t Tip) (Tip, error)
}

// PGStore implementa Store sobre PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore { return &PGStore{pool: pool} }

func (s *PGStore) CreateTip(ctx context.Context, t Tip) (Tip, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	const q = `
INSERT INTO tip (id, user_id, subject, body)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, subject, body, created_at;
`
	var out Tip
	err := s.pool.QueryRow(ctx, q, t.ID, t.UserID, t.Subject, t.Body).
		Scan(&out.ID, &out.UserID, &out.Subject, &out.Body, &out.CreatedAt)
	if err != nil {
		return Tip{}, err
	}
	return out, nil
}

// Service valida, guarda y notifica tips.
type Service struct {
	store    Store
	sender   email.Sender
	notifyTo string
	log      *zap.Logger
}

func NewService(store Store, sender email.Sender, notifyTo string) *Service {
	return &Service{
		store:    store,
		sender:   sender,
		notifyTo: notifyTo,
		log:      logger.Named("tipline"),
	}
}

// Submit guarda el tip y dispara la notificación en background. El
// fallo de email no falla el submit: el tip ya quedó persistido.
func (s *Service) Submit(ctx context.Context, userID, subject, body string) (Tip, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" || body == "" {
		return Tip{}, fmt.Errorf("%w: subject y body son obligatorios", ErrInvalid)
	}
	if len(subject) > maxSubjectLen || len(body) > maxBodyLen {
		return Tip{}, fmt.Errorf("%w: demasiado largo", ErrInvalid)
	}

	tip, err := s.store.CreateTip(ctx, Tip{
		UserID:  userID,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return Tip{}, err
	}

	if s.sender != nil && s.notifyTo != "" {
		go s.notify(tip)
	}
	return tip, nil
}

func (s *Service) notify(t Tip) {
	subject := "[tipline] " + t.Subject
	text := fmt.Sprintf("Tip %s de %s:\n\n%s", t.ID, t.UserID, t.Body)
	htmlBody := fmt.Sprintf("<p>Tip <b>%s</b> de %s:</p><pre>%s</pre>",
		html.EscapeString(t.ID), html.EscapeString(t.UserID), html.EscapeString(t.Body))

	if err := s.sender.Send(s.notifyTo, subject, htmlBody, text); err != nil {
		s.log.Error("tip notification failed", zap.String("tip_id", t.ID), logger.Err(err))
	}
}
