package storefront

import "github.com/copperkettle/storefront/pkg/identity"

// Migrations returns the shop schema migrations. Versions 1-9 are reserved
// for the identity schema; shop tables start at 10.
func Migrations() []identity.Migration {
	return []identity.Migration{
		{
			Version:     10,
			Description: "Create menu_items table",
			SQL: `
				CREATE TABLE IF NOT EXISTS menu_items (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT 'general',
					price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
					available BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_menu_items_category ON menu_items(category);
			`,
		},
		{
			Version:     11,
			Description: "Create orders and order_items tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS orders (
					id BIGSERIAL PRIMARY KEY,
					subject_id UUID NOT NULL REFERENCES profiles(id),
					status TEXT NOT NULL DEFAULT 'pending'
						CHECK (status IN ('pending', 'preparing', 'ready', 'completed', 'cancelled')),
					total_cents BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS order_items (
					id BIGSERIAL PRIMARY KEY,
					order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
					menu_item_id BIGINT NOT NULL REFERENCES menu_items(id),
					quantity INTEGER NOT NULL CHECK (quantity > 0),
					price_cents BIGINT NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_orders_subject_id ON orders(subject_id);
				CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
				CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
			`,
		},
		{
			Version:     12,
			Description: "Create gift_cards table",
			SQL: `
				CREATE TABLE IF NOT EXISTS gift_cards (
					id BIGSERIAL PRIMARY KEY,
					code TEXT NOT NULL UNIQUE,
					subject_id UUID NOT NULL REFERENCES profiles(id),
					balance_cents BIGINT NOT NULL CHECK (balance_cents >= 0),
					active BOOLEAN NOT NULL DEFAULT TRUE,
					expires_at TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_gift_cards_subject_id ON gift_cards(subject_id);
				CREATE INDEX IF NOT EXISTS idx_gift_cards_active_expiry ON gift_cards(active, expires_at);
			`,
		},
		{
			Version:     13,
			Description: "Create loyalty_accounts table",
			SQL: `
				CREATE TABLE IF NOT EXISTS loyalty_accounts (
					subject_id UUID PRIMARY KEY REFERENCES profiles(id),
					points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
	}
}
