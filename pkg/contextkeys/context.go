package contextkeys

// Custom type to avoid collisions with other context values.
type contextKey string

// DBContextKey is the key under which *gorm.DB is stored in a request context.
// Tests put a transaction here; production requests fall back to the pool.
const DBContextKey = contextKey("db")
