package transactions

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	txsvc "stockhouse-backend/internal/application/transactions"
	"stockhouse-backend/internal/domain"
	"stockhouse-backend/internal/infrastructure/database"
	"stockhouse-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTxTest(t *testing.T) (*Handlers, *gorm.DB) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Transaction{}))
	return &Handlers{Service: &txsvc.Service{DB: db}}, db
}

func appAs(h *Handlers, userID uuid.UUID, role string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": userID.String(),
			"role":    role,
		})
		return c.Next()
	})
	app.Get("/transactions", h.List)
	return app
}

func list(t *testing.T, app *fiber.App, path string) (int, txsvc.ListResult) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var out struct {
		Data txsvc.ListResult `json:"data"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out.Data
}

func TestList_Unauthenticated(t *testing.T) {
	h, _ := setupTxTest(t)
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Get("/transactions", h.List)

	resp, err := app.Test(httptest.NewRequest("GET", "/transactions", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestList_OwnEntries(t *testing.T) {
	h, db := setupTxTest(t)
	me, other := uuid.New(), uuid.New()
	require.NoError(t, db.Create(&domain.Transaction{Type: domain.TxFaucet, ToUserID: &me, Amount: 10}).Error)
	require.NoError(t, db.Create(&domain.Transaction{Type: domain.TxTransfer, FromUserID: &me, ToUserID: &other, Shares: 3}).Error)
	require.NoError(t, db.Create(&domain.Transaction{Type: domain.TxFaucet, ToUserID: &other, Amount: 20}).Error)

	code, out := list(t, appAs(h, me, "investor"), "/transactions")
	require.Equal(t, 200, code)
	assert.Equal(t, int64(2), out.Count)

	code, out = list(t, appAs(h, me, "investor"), "/transactions?type=faucet")
	require.Equal(t, 200, code)
	assert.Equal(t, int64(1), out.Count)

	code, _ = list(t, appAs(h, me, "investor"), "/transactions?userId="+other.String())
	assert.Equal(t, 403, code)

	code, out = list(t, appAs(h, uuid.New(), "admin"), "/transactions?userId="+other.String())
	require.Equal(t, 200, code)
	assert.Equal(t, int64(2), out.Count)
}
