// Package api hosts the HTTP surface of the SEO service:
//   - the catch-all page router, which serves crawler HTML or redirects humans
//     to the SPA origin;
//   - GET /healthz, /readyz and /metrics for probes and Prometheus;
//   - GET /sitemap.xml and /robots.txt;
//   - GET /api/seo/page and /api/seo/listing/{kind}/{slug} for the SPA head tags;
//   - /admin/... routes guarded by X-API-Key for generation, edits, deploys,
//     sitemap downloads and crawler-view audits.
package api
