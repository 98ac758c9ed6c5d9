// Package seo defines the core types shared by the crawler-facing SEO pipeline:
// page metadata, listings, sitemap entries, deployment statistics, and the pure
// functions that turn them into crawlable HTML.
package seo

import (
	"strings"
	"time"
)

// PageMetadata is one row of the page_seo table, keyed by logical page path.
type PageMetadata struct {
	Path               string         `json:"path"`
	Title              string         `json:"title"`
	Description        string         `json:"description,omitempty"`
	Keywords           string         `json:"keywords,omitempty"`
	OGTitle            string         `json:"ogTitle,omitempty"`
	OGDescription      string         `json:"ogDescription,omitempty"`
	OGImage            string         `json:"ogImage,omitempty"`
	TwitterTitle       string         `json:"twitterTitle,omitempty"`
	TwitterDescription string         `json:"twitterDescription,omitempty"`
	TwitterImage       string         `json:"twitterImage,omitempty"`
	CanonicalURL       string         `json:"canonicalUrl,omitempty"`
	Robots             string         `json:"robots,omitempty"`
	StructuredData     map[string]any `json:"structuredData,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// ListingKind identifies a listing collection.
type ListingKind string

// Listing collections exposed to the SEO pipeline.
const (
	KindRestaurant ListingKind = "restaurant"
	KindHotel      ListingKind = "hotel"
	KindActivity   ListingKind = "activity"
	KindBlog       ListingKind = "blog"
)

// AllKinds lists every listing collection in sitemap order.
var AllKinds = []ListingKind{KindRestaurant, KindHotel, KindActivity, KindBlog}

// Section returns the top-level site section that hosts detail pages of the kind.
func (k ListingKind) Section() string {
	switch k {
	case KindRestaurant:
		return "eat"
	case KindHotel:
		return "stay"
	case KindActivity:
		return "do"
	case KindBlog:
		return "blog"
	default:
		return ""
	}
}

// ParseListingKind maps a kind name or section name to a ListingKind.
func ParseListingKind(raw string) (ListingKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "restaurant", "restaurants", "eat":
		return KindRestaurant, true
	case "hotel", "hotels", "stay":
		return KindHotel, true
	case "activity", "activities", "adventure", "adventure_business", "do":
		return KindActivity, true
	case "blog", "post", "posts", "blog_post":
		return KindBlog, true
	default:
		return "", false
	}
}

// Listing is an approved (or, for blog posts, published) directory record.
type Listing struct {
	Kind        ListingKind `json:"kind"`
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug,omitempty"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category,omitempty"`
	Address     string      `json:"address,omitempty"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Website     string      `json:"website,omitempty"`
	PriceRange  string      `json:"priceRange,omitempty"`
	Rating      float64     `json:"rating,omitempty"`
	Author      string      `json:"author,omitempty"`
	PublishedAt *time.Time  `json:"publishedAt,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// PathSlug returns the slug used in the listing's public URL. Stored slugs win;
// otherwise the slug is derived from the name with Slugify.
func (l Listing) PathSlug() string {
	if s := strings.TrimSpace(l.Slug); s != "" {
		return s
	}
	return Slugify(l.Name)
}

// Path returns the logical page path of the listing detail page.
func (l Listing) Path() string {
	return "/" + l.Kind.Section() + "/" + l.PathSlug()
}

// ChangeFrequency values used in the sitemap.
const (
	ChangeDaily   = "daily"
	ChangeWeekly  = "weekly"
	ChangeMonthly = "monthly"
	ChangeYearly  = "yearly"
)

// SitemapEntry is one derived <url> block of the sitemap.
type SitemapEntry struct {
	URL             string
	LastModified    *time.Time
	ChangeFrequency string
	Priority        float64
}

// DeployFile is one generated page handed to a deployment: the logical page
// path and the rendered document.
type DeployFile struct {
	Path    string
	Content []byte
}

// FileType classifies deployed pages for statistics.
type FileType string

// File types reported by deployments.
const (
	FileTypeHome       FileType = "home"
	FileTypeRestaurant FileType = "restaurant"
	FileTypeHotel      FileType = "hotel"
	FileTypeActivity   FileType = "activity"
	FileTypeBlog       FileType = "blog"
	FileTypeCategory   FileType = "category"
	FileTypeStatic     FileType = "static"
)

// DeploymentStat summarizes one deployment run.
type DeploymentStat struct {
	ID                 string           `json:"id"`
	Target             string           `json:"target"`
	Total              int              `json:"total"`
	Succeeded          int              `json:"succeeded"`
	Failed             int              `json:"failed"`
	FileTypeCounts     map[FileType]int `json:"fileTypeCounts"`
	Timestamp          time.Time        `json:"timestamp"`
	Errors             []string         `json:"errors"`
	VerificationPassed bool             `json:"verificationPassed"`
	Success            bool             `json:"success"`
	Duration           time.Duration    `json:"duration"`
}

// ManifestInfo describes the generator that produced a deployment.
type ManifestInfo struct {
	Generator string `json:"generator"`
	Version   string `json:"version"`
}

// DeploymentManifest is the audit document written alongside deployed files.
type DeploymentManifest struct {
	Deployment ManifestDeployment `json:"deployment"`
}

// ManifestDeployment is the body of a DeploymentManifest.
type ManifestDeployment struct {
	Timestamp time.Time      `json:"timestamp"`
	Stats     DeploymentStat `json:"stats"`
	Generator string         `json:"generator"`
	Version   string         `json:"version"`
}
