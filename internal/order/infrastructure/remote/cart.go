package remote

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/auth"
	"github.com/dmehra2102/storefront/pkg/resilience"
)

type cartDTO struct {
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Items      []cartItemDTO   `json:"items"`
}

type cartItemDTO struct {
	ID       int64           `json:"id"`
	ItemID   int64           `json:"itemId"`
	ItemName string          `json:"itemName"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (c cartDTO) snapshot() domain.CartSnapshot {
	lines := make([]domain.CartLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, domain.CartLine{
			ItemID:    it.ItemID,
			ItemName:  it.ItemName,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
		})
	}
	return domain.CartSnapshot{TotalPrice: c.TotalPrice, Lines: lines}
}

type CartClient struct {
	client
}

func NewCartClient(log *slog.Logger, hc *http.Client, baseURL string, policy *resilience.Policy) *CartClient {
	return &CartClient{client: newClient(log, hc, baseURL, policy)}
}

// FetchCart returns the caller's cart. A 404 means the caller has no cart
// yet and is returned as an empty snapshot.
func (c *CartClient) FetchCart(ctx context.Context, p auth.Principal) (domain.CartSnapshot, error) {
	var dto cartDTO
	err := c.call(ctx, p, "fetch_cart", http.MethodGet, "/cart", nil, &dto)
	if err == nil {
		return dto.snapshot(), nil
	}
	if isNotFound(err) {
		c.log.InfoContext(ctx, "no cart for user, treating as empty", "username", p.Username)
		return domain.CartSnapshot{}, nil
	}
	c.log.ErrorContext(ctx, "cart fetch failed", "username", p.Username, "err", err)
	return domain.CartSnapshot{}, &domain.UnavailableError{Remote: c.policy.Name(), Op: "fetch cart", Cause: err}
}

// ClearCart empties the caller's cart. Failures are logged and swallowed.
func (c *CartClient) ClearCart(ctx context.Context, p auth.Principal) error {
	if err := c.call(ctx, p, "clear_cart", http.MethodDelete, "/cart/clear", nil, nil); err != nil {
		c.log.WarnContext(ctx, "cart clear failed", "username", p.Username, "err", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.Status == http.StatusNotFound
}
