// Package storefront holds the shop domain: menu, orders, gift cards, and
// loyalty points.
//
// The package is deliberately authorization-free. Route protection is the
// request gate's job; handlers here only distinguish "whose data" (the
// gate-resolved profile on the context) from "what data". Admin handlers
// assume the gate already required the admin tier.
package storefront
