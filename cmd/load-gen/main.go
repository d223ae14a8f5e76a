// Command load-gen fires randomized concurrent order creations at a running
// API server and verifies that the global total advanced by exactly the sum
// of the accepted orders' total values.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type config struct {
	BaseURL string `default:"http://localhost:8080" usage:"API server base URL" flag:"base-url"`
	Orders  int    `default:"100" usage:"Number of orders to create"`
	Workers int    `default:"10" usage:"Concurrent workers"`
}

type orderRequest struct {
	OrderID  uuid.UUID       `json:"orderId"`
	BarCode  string          `json:"barCode"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type orderResponse struct {
	OrderID    uuid.UUID       `json:"orderId"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

func main() {
	lg, _ := zap.NewDevelopment()
	defer func() { _ = lg.Sync() }()

	if err := run(lg); err != nil {
		lg.Error("load-gen failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(lg *zap.Logger) error {
	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFiles: true,
		EnvPrefix: "LOADGEN",
	})
	if err := loader.Load(); err != nil {
		return errors.Wrap(err, "load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}

	before, err := fetchTotal(ctx, client, cfg.BaseURL)
	if err != nil {
		return errors.Wrap(err, "read total before run")
	}

	var mu sync.Mutex
	created := decimal.Zero

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for range cfg.Orders {
		g.Go(func() error {
			total, err := createOrder(gctx, client, cfg.BaseURL)
			if err != nil {
				return err
			}
			mu.Lock()
			created = created.Add(total)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "create orders")
	}
	elapsed := time.Since(start)

	after, err := fetchTotal(ctx, client, cfg.BaseURL)
	if err != nil {
		return errors.Wrap(err, "read total after run")
	}

	delta := after.Sub(before)
	lg.Info("Run complete",
		zap.Int("orders", cfg.Orders),
		zap.Duration("elapsed", elapsed),
		zap.String("created_total", created.String()),
		zap.String("counter_delta", delta.String()),
	)

	if !delta.Equal(created) {
		return errors.Errorf("global total advanced by %s, want %s", delta, created)
	}
	lg.Info("Global total matches the sum of created orders")
	return nil
}

func createOrder(ctx context.Context, client *http.Client, baseURL string) (decimal.Decimal, error) {
	req := orderRequest{
		OrderID:  uuid.New(),
		BarCode:  randomBarCode(),
		Quantity: rand.Intn(25) + 1,
		Price:    decimal.NewFromInt(int64(rand.Intn(4900) + 100)).Div(decimal.NewFromInt(100)),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return decimal.Zero, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/api/orders", bytes.NewReader(body))
	if err != nil {
		return decimal.Zero, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return decimal.Zero, errors.Errorf("create order: unexpected status %d", resp.StatusCode)
	}

	var created orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return decimal.Zero, errors.Wrap(err, "decode order response")
	}
	return created.TotalValue, nil
}

func fetchTotal(ctx context.Context, client *http.Client, baseURL string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/api/orders/total-value", nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, errors.Errorf("total-value: unexpected status %d", resp.StatusCode)
	}

	var total decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&total); err != nil {
		return decimal.Zero, errors.Wrap(err, "decode total")
	}
	return total, nil
}

// randomBarCode generates an EAN-13 bar code: 12 random digits plus the
// standard check digit.
func randomBarCode() string {
	digits := make([]byte, 13)
	sum := 0
	for i := range 12 {
		d := rand.Intn(10)
		digits[i] = byte('0' + d)
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	digits[12] = byte('0' + (10-sum%10)%10)
	return string(digits)
}
