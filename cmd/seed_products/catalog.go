package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	productdom "sneakhead/internal/domain/product"
)

// catalogRow is one entry under "products:" in the catalog file.
// Image is either a URL kept as is or a local file that gets uploaded.
type catalogRow struct {
	Name        string `koanf:"name"`
	Price       string `koanf:"price"`
	Description string `koanf:"description"`
	Image       string `koanf:"image"`
}

type seedItem struct {
	Product   productdom.Product
	ImageFile string
}

func loadCatalog(path string) ([]seedItem, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var rows []catalogRow
	if err := k.Unmarshal("products", &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, errors.New("catalog has no products")
	}

	items := make([]seedItem, 0, len(rows))
	for i, row := range rows {
		price, err := decimal.NewFromString(strings.TrimSpace(row.Price))
		if err != nil {
			return nil, fmt.Errorf("products[%d] %q: price: %w", i, row.Name, err)
		}
		it := seedItem{Product: productdom.Product{Name: row.Name, Price: price, Description: row.Description}}
		img := strings.TrimSpace(row.Image)
		if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
			it.Product.Image = img
		} else {
			it.ImageFile = img
		}
		it.Product.Normalize()
		if err := it.Product.Validate(); err != nil {
			return nil, fmt.Errorf("products[%d] %q: %w", i, row.Name, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// seed adds every item whose name is not in the catalog yet, so reruns are safe.
// An image file that fails to upload leaves the placeholder image.
func seed(ctx context.Context, repo productdom.Repository, items []seedItem, log *zap.Logger) (added, skipped int, err error) {
	existing := repo.ListProducts(ctx)
	if !existing.OK() {
		return 0, 0, fmt.Errorf("list products: %s", existing.Message)
	}
	have := make(map[string]bool, len(existing.Payload))
	for _, p := range existing.Payload {
		have[strings.ToLower(p.Name)] = true
	}

	for _, it := range items {
		key := strings.ToLower(it.Product.Name)
		if have[key] {
			skipped++
			continue
		}
		p := it.Product
		if it.ImageFile != "" {
			p.Image = upload(ctx, repo, it.ImageFile, log)
		}
		res := repo.AddProduct(ctx, p)
		if !res.OK() {
			return added, skipped, fmt.Errorf("add %q: %s", p.Name, res.Message)
		}
		have[key] = true
		added++
		log.Info("[seed] added", zap.String("productId", res.Payload.ID), zap.String("name", p.Name))
	}
	return added, skipped, nil
}

func upload(ctx context.Context, repo productdom.Repository, path string, log *zap.Logger) string {
	f, err := os.Open(path)
	if err != nil {
		log.Warn("[seed] image not readable", zap.String("file", path), zap.Error(err))
		return productdom.DefaultImage
	}
	defer f.Close()
	url, err := repo.Upload(ctx, f, path)
	if err != nil {
		log.Warn("[seed] image upload failed", zap.String("file", path), zap.Error(err))
		return productdom.DefaultImage
	}
	return url
}
