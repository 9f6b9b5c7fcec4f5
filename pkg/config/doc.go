// Package config loads application configuration from the environment.
//
// Every setting has a STOREFRONT_-prefixed environment variable and a
// sensible default; the only required value is the Postgres URL.
package config
