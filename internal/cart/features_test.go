package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

type cartWorld struct {
	products map[string]domain.Product
	store    *Store
}

func (w *cartWorld) theCatalogContains(table *godog.Table) error {
	w.products = make(map[string]domain.Product)
	for _, row := range table.Rows[1:] {
		price, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return err
		}
		id := row.Cells[0].Value
		w.products[id] = domain.Product{ID: id, Name: id, Price: price}
	}
	return nil
}

func (w *cartWorld) anEmptyCart() error {
	w.store = NewStore()
	return nil
}

func (w *cartWorld) iAdd(id string) error {
	p, ok := w.products[id]
	if !ok {
		return fmt.Errorf("unknown product %q", id)
	}
	w.store.AddToCart(p)
	return nil
}

func (w *cartWorld) iRemove(id string) error {
	w.store.RemoveFromCart(id)
	return nil
}

func (w *cartWorld) iSetQuantity(id string, qty int) error {
	w.store.UpdateQuantity(id, qty)
	return nil
}

func (w *cartWorld) iClear() error {
	w.store.ClearCart()
	return nil
}

func (w *cartWorld) theCartHasLines(n int) error {
	if got := len(w.store.Snapshot().Items); got != n {
		return fmt.Errorf("expected %d lines, got %d", n, got)
	}
	return nil
}

func (w *cartWorld) theQuantityOfIs(id string, qty int) error {
	line, _, ok := w.store.Snapshot().Find(id)
	if !ok {
		return fmt.Errorf("no line for %q", id)
	}
	if line.Quantity != qty {
		return fmt.Errorf("expected quantity %d, got %d", qty, line.Quantity)
	}
	return nil
}

func (w *cartWorld) theCartTotalIs(total string) error {
	want, err := decimal.NewFromString(total)
	if err != nil {
		return err
	}
	state := w.store.Snapshot()
	if !state.Total.Equal(want) {
		return fmt.Errorf("expected total %s, got %s", want, state.Total)
	}
	return Verify(state)
}

func (w *cartWorld) theItemCountIs(n int) error {
	if got := w.store.Snapshot().ItemCount; got != n {
		return fmt.Errorf("expected item count %d, got %d", n, got)
	}
	return nil
}

func initializeCartScenario(sc *godog.ScenarioContext) {
	w := &cartWorld{}
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w.store = NewStore()
		return ctx, nil
	})

	sc.Step(`^the catalog contains:$`, w.theCatalogContains)
	sc.Step(`^an empty cart$`, w.anEmptyCart)
	sc.Step(`^I add "([^"]*)" to the cart$`, w.iAdd)
	sc.Step(`^I remove "([^"]*)" from the cart$`, w.iRemove)
	sc.Step(`^I set the quantity of "([^"]*)" to (-?\d+)$`, w.iSetQuantity)
	sc.Step(`^I clear the cart$`, w.iClear)
	sc.Step(`^the cart has (\d+) lines?$`, w.theCartHasLines)
	sc.Step(`^the quantity of "([^"]*)" is (\d+)$`, w.theQuantityOfIs)
	sc.Step(`^the cart total is ([\d.]+)$`, w.theCartTotalIs)
	sc.Step(`^the cart item count is (\d+)$`, w.theItemCountIs)
}

func TestCartFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "cart",
		ScenarioInitializer: initializeCartScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("cart feature scenarios failed")
	}
}
