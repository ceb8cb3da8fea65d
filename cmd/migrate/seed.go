package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/repositories"
	"github.com/asakaida/pagetypes/internal/repositories/postgres"
	"github.com/asakaida/pagetypes/internal/services/pageattributes"
	"github.com/asakaida/pagetypes/pkg/globalid"
	"github.com/lib/pq"
	"github.com/spf13/cobra"
)

// uniqueViolation is the PostgreSQL error code for a duplicate key
const uniqueViolation = "23505"

type seedPageType struct {
	pageType   entities.PageType
	attributes []string // slugs assigned on creation
}

var seedAttributes = []entities.Attribute{
	{Name: "Author", Slug: "author", Type: entities.AttributeTypePageType},
	{Name: "Topic", Slug: "topic", Type: entities.AttributeTypePageType},
	{Name: "Publication date", Slug: "publication-date", Type: entities.AttributeTypePageType},
	{Name: "Hero image", Slug: "hero-image", Type: entities.AttributeTypePageType},
	{Name: "Color", Slug: "color", Type: entities.AttributeTypeProductType},
	{Name: "Size", Slug: "size", Type: entities.AttributeTypeProductType},
}

var seedPageTypes = []seedPageType{
	{
		pageType:   entities.PageType{Name: "Blog post", Slug: "blog-post"},
		attributes: []string{"author", "publication-date"},
	},
	{
		pageType:   entities.PageType{Name: "Landing page", Slug: "landing-page"},
		attributes: []string{"hero-image"},
	},
	{
		pageType: entities.PageType{Name: "About", Slug: "about"},
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// each row commits on its own so a duplicate slug only skips that row
	var store repositories.Store = postgres.NewPostgresStore(pg.DB)

	created := make(map[string]int64, len(seedAttributes))
	for _, a := range seedAttributes {
		attr := a
		if err := createOnce(func() error { return store.Attributes().Create(ctx, &attr) }); err != nil {
			return fmt.Errorf("failed to seed attribute %s: %w", attr.Slug, err)
		}
		if attr.ID != 0 {
			created[attr.Slug] = attr.ID
			log.Info("Seeded attribute", "slug", attr.Slug, "id", globalid.ToGlobalID(pageattributes.AttributeTypeName, attr.ID))
		}
	}

	for _, s := range seedPageTypes {
		pt := s.pageType
		if err := createOnce(func() error { return store.PageTypes().Create(ctx, &pt) }); err != nil {
			return fmt.Errorf("failed to seed page type %s: %w", pt.Slug, err)
		}
		if pt.ID == 0 {
			log.Info("Page type already present", "slug", pt.Slug)
			continue
		}

		var ids []int64
		for _, slug := range s.attributes {
			if id, ok := created[slug]; ok {
				ids = append(ids, id)
			}
		}
		if err := store.PageTypeAttributes().Add(ctx, pt.ID, ids...); err != nil {
			return fmt.Errorf("failed to assign seed attributes to %s: %w", pt.Slug, err)
		}
		log.Info("Seeded page type",
			"slug", pt.Slug,
			"id", globalid.ToGlobalID(pageattributes.PageTypeTypeName, pt.ID),
			"attributes", len(ids),
		)
	}
	return nil
}

// createOnce runs create and ignores duplicate slugs
func createOnce(create func() error) error {
	if err := create(); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil
		}
		return err
	}
	return nil
}
