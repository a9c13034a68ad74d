package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/angelmondragon/uniformhub-backend/internal/categories"
	"github.com/angelmondragon/uniformhub-backend/internal/products"
	"github.com/angelmondragon/uniformhub-backend/internal/schools"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
)

// catalogFile is the on-disk shape of a seed file.
type catalogFile struct {
	Categories []seedCategory `yaml:"categories"`
	Schools    []seedSchool   `yaml:"schools"`
	Products   []seedProduct  `yaml:"products"`
}

type seedCategory struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description"`
}

type seedSchool struct {
	Name     string  `yaml:"name"`
	Slug     string  `yaml:"slug"`
	Location string  `yaml:"location"`
	LogoURL  *string `yaml:"logo_url"`
}

type seedProduct struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Price       string   `yaml:"price"`
	ImageURL    string   `yaml:"image_url"`
	School      string   `yaml:"school"`
	Category    string   `yaml:"category"`
	Sizes       []string `yaml:"sizes"`
	Colors      []string `yaml:"colors"`
	InStock     *bool    `yaml:"in_stock"`
}

type seedReport struct {
	Categories, Schools, Products, Skipped int
}

func newSeedCmd(open opener) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load categories, schools and products from a YAML catalog",
		Long: `Load a YAML catalog into the database in one transaction. Categories are
matched by name, schools by slug and products by name within their school, so
running the same file twice creates nothing new.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(file) == "" {
				return fmt.Errorf("--file is required")
			}
			catalog, err := readCatalog(file)
			if err != nil {
				return err
			}
			conn, closeDB, err := open(cmd.Context())
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer closeDB()

			report, err := seedCatalog(cmd.Context(), db.Wrap(conn), catalog)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories, %d schools, %d products (%d already present)\n",
				report.Categories, report.Schools, report.Products, report.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the catalog YAML file")
	return cmd
}

func readCatalog(path string) (*catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &catalog, nil
}

func seedCatalog(ctx context.Context, client *db.Client, catalog *catalogFile) (seedReport, error) {
	var report seedReport
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		report = seedReport{}
		categoryRepo := categories.NewRepository(tx)
		schoolRepo := schools.NewRepository(tx)
		productRepo := products.NewRepository(tx)

		existing, err := categoryRepo.List(ctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		categoryIDs := map[string]*models.Category{}
		for i := range existing {
			categoryIDs[strings.ToLower(existing[i].Name)] = &existing[i]
		}
		for _, entry := range catalog.Categories {
			name := strings.TrimSpace(entry.Name)
			if name == "" {
				return fmt.Errorf("category without a name")
			}
			if _, ok := categoryIDs[strings.ToLower(name)]; ok {
				report.Skipped++
				continue
			}
			category := &models.Category{Name: name, Description: entry.Description}
			if err := categoryRepo.Create(ctx, category); err != nil {
				return fmt.Errorf("create category %q: %w", name, err)
			}
			categoryIDs[strings.ToLower(name)] = category
			report.Categories++
		}

		schoolsBySlug := map[string]*models.School{}
		for _, entry := range catalog.Schools {
			slug := strings.ToLower(strings.TrimSpace(entry.Slug))
			if slug == "" || strings.TrimSpace(entry.Name) == "" {
				return fmt.Errorf("school entries need a name and slug")
			}
			school, err := schoolRepo.FindBySlug(ctx, slug)
			switch {
			case err == nil:
				report.Skipped++
			case db.IsNotFound(err):
				school = &models.School{
					Name:     strings.TrimSpace(entry.Name),
					Slug:     slug,
					Location: strings.TrimSpace(entry.Location),
					LogoURL:  entry.LogoURL,
				}
				if err := schoolRepo.Create(ctx, school); err != nil {
					return fmt.Errorf("create school %q: %w", slug, err)
				}
				report.Schools++
			default:
				return fmt.Errorf("load school %q: %w", slug, err)
			}
			schoolsBySlug[slug] = school
		}

		for _, entry := range catalog.Products {
			product, err := buildProduct(ctx, entry, categoryIDs, schoolsBySlug, schoolRepo)
			if err != nil {
				return err
			}
			exists, err := productExists(ctx, tx, product)
			if err != nil {
				return err
			}
			if exists {
				report.Skipped++
				continue
			}
			if err := productRepo.Create(ctx, product); err != nil {
				return fmt.Errorf("create product %q: %w", product.Name, err)
			}
			report.Products++
		}
		return nil
	})
	return report, err
}

func buildProduct(ctx context.Context, entry seedProduct, categoryIDs map[string]*models.Category, schoolsBySlug map[string]*models.School, schoolRepo schools.Repository) (*models.Product, error) {
	name := strings.TrimSpace(entry.Name)
	if name == "" {
		return nil, fmt.Errorf("product without a name")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(entry.Price))
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("product %q has an invalid price %q", name, entry.Price)
	}
	product := &models.Product{
		Name:        name,
		Description: strings.TrimSpace(entry.Description),
		Price:       price.Round(2),
		ImageURL:    strings.TrimSpace(entry.ImageURL),
		Sizes:       entry.Sizes,
		Colors:      entry.Colors,
		InStock:     entry.InStock == nil || *entry.InStock,
	}
	if slug := strings.ToLower(strings.TrimSpace(entry.School)); slug != "" {
		school, ok := schoolsBySlug[slug]
		if !ok {
			school, err = schoolRepo.FindBySlug(ctx, slug)
			if err != nil {
				return nil, fmt.Errorf("product %q references unknown school %q", name, slug)
			}
		}
		product.SchoolID = &school.ID
	}
	if categoryName := strings.ToLower(strings.TrimSpace(entry.Category)); categoryName != "" {
		category, ok := categoryIDs[categoryName]
		if !ok {
			return nil, fmt.Errorf("product %q references unknown category %q", name, entry.Category)
		}
		product.CategoryID = &category.ID
	}
	return product, nil
}

func productExists(ctx context.Context, tx *gorm.DB, product *models.Product) (bool, error) {
	query := tx.WithContext(ctx).Model(&models.Product{}).Where("name = ?", product.Name)
	if product.SchoolID != nil {
		query = query.Where("school_id = ?", *product.SchoolID)
	} else {
		query = query.Where("school_id IS NULL")
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check product %q: %w", product.Name, err)
	}
	return count > 0, nil
}
