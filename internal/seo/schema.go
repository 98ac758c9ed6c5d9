package seo

import "strings"

const schemaContext = "https://schema.org"

// WebPageSchema is the default structured data synthesized for pages without
// an explicit JSON-LD object.
func WebPageSchema(site Site, page PageMetadata) map[string]any {
	site = site.Normalized()
	data := map[string]any{
		"@context": schemaContext,
		"@type":    "WebPage",
		"name":     page.Title,
		"url":      site.CanonicalURL(page.Path),
		"isPartOf": map[string]any{
			"@type": "WebSite",
			"name":  site.Name,
			"url":   site.CanonicalURL("/"),
		},
	}
	if page.Description != "" {
		data["description"] = page.Description
	}
	if site.Language != "" {
		data["inLanguage"] = site.Language
	}
	return data
}

// WebSiteSchema describes the whole directory; used on the home page.
func WebSiteSchema(site Site, description string) map[string]any {
	site = site.Normalized()
	data := map[string]any{
		"@context": schemaContext,
		"@type":    "WebSite",
		"name":     site.Name,
		"url":      site.CanonicalURL("/"),
	}
	if description != "" {
		data["description"] = description
	}
	return data
}

// ListingSchema dispatches to the schema builder for the listing kind.
func ListingSchema(site Site, l Listing) map[string]any {
	switch l.Kind {
	case KindRestaurant:
		return RestaurantSchema(site, l)
	case KindHotel:
		return HotelSchema(site, l)
	case KindActivity:
		return ActivitySchema(site, l)
	case KindBlog:
		return BlogPostingSchema(site, l)
	default:
		return WebPageSchema(site, PageMetadata{Path: l.Path(), Title: l.Name, Description: l.Description})
	}
}

// RestaurantSchema builds a schema.org Restaurant.
func RestaurantSchema(site Site, l Listing) map[string]any {
	data := localBusiness(site, "Restaurant", l)
	if l.Category != "" {
		data["servesCuisine"] = l.Category
	}
	return data
}

// HotelSchema builds a schema.org LodgingBusiness.
func HotelSchema(site Site, l Listing) map[string]any {
	return localBusiness(site, "LodgingBusiness", l)
}

// ActivitySchema builds a schema.org TouristAttraction for adventure businesses.
func ActivitySchema(site Site, l Listing) map[string]any {
	data := localBusiness(site, "TouristAttraction", l)
	if l.Category != "" {
		data["touristType"] = l.Category
	}
	return data
}

// BlogPostingSchema builds a schema.org BlogPosting.
func BlogPostingSchema(site Site, l Listing) map[string]any {
	site = site.Normalized()
	postURL := site.CanonicalURL(l.Path())
	data := map[string]any{
		"@context":    schemaContext,
		"@type":       "BlogPosting",
		"headline":    l.Name,
		"description": l.Description,
		"url":         postURL,
		"mainEntityOfPage": map[string]any{
			"@type": "WebPage",
			"@id":   postURL,
		},
		"publisher": map[string]any{
			"@type": "Organization",
			"name":  site.Name,
		},
	}
	if l.PublishedAt != nil {
		data["datePublished"] = l.PublishedAt.UTC().Format("2006-01-02")
	}
	if !l.UpdatedAt.IsZero() {
		data["dateModified"] = l.UpdatedAt.UTC().Format("2006-01-02")
	}
	if l.Author != "" {
		data["author"] = map[string]any{"@type": "Person", "name": l.Author}
	}
	if img := site.AbsoluteURL(l.ImageURL); img != "" {
		data["image"] = img
	}
	return data
}

func localBusiness(site Site, schemaType string, l Listing) map[string]any {
	site = site.Normalized()
	data := map[string]any{
		"@context": schemaContext,
		"@type":    schemaType,
		"name":     l.Name,
		"url":      site.CanonicalURL(l.Path()),
	}
	if l.Description != "" {
		data["description"] = l.Description
	}
	if img := site.AbsoluteURL(l.ImageURL); img != "" {
		data["image"] = img
	}
	if l.Phone != "" {
		data["telephone"] = l.Phone
	}
	if l.PriceRange != "" {
		data["priceRange"] = l.PriceRange
	}
	if l.Website != "" {
		data["sameAs"] = l.Website
	}
	address := map[string]any{
		"@type":           "PostalAddress",
		"addressLocality": "Cambutal",
		"addressRegion":   "Los Santos",
		"addressCountry":  "PA",
	}
	if strings.TrimSpace(l.Address) != "" {
		address["streetAddress"] = strings.TrimSpace(l.Address)
	}
	data["address"] = address
	if l.Rating > 0 {
		data["aggregateRating"] = map[string]any{
			"@type":       "AggregateRating",
			"ratingValue": l.Rating,
			"bestRating":  5,
		}
	}
	return data
}
