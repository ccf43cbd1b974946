package store

// SQL statements for the Postgres store. Snapshots and subscribers are
// persisted as JSONB documents on the items row; the snapshot array is
// append-only by convention (SaveItem writes the whole document, and only
// the tracker appends to it).

const queryCreateItem = `
INSERT INTO items (url, selector, snapshots, subscribers)
VALUES (@url, @selector, @snapshots, @subscribers)
RETURNING id, created_at, updated_at`

const querySaveItem = `
UPDATE items
SET url         = @url,
    selector    = @selector,
    snapshots   = @snapshots,
    subscribers = @subscribers,
    updated_at  = now()
WHERE id = @id
RETURNING updated_at`

const queryGetItem = `
SELECT id, url, selector, snapshots, subscribers, created_at, updated_at
FROM items
WHERE id = $1`

const queryGetItemsByURL = `
SELECT id, url, selector, snapshots, subscribers, created_at, updated_at
FROM items
WHERE url = $1
ORDER BY created_at`

const queryListItems = `
SELECT id, url, selector, snapshots, subscribers, created_at, updated_at
FROM items
ORDER BY created_at`

// queryRemoveSubscriber filters one subscriber entry out of the JSONB array.
// COALESCE covers the case where the filter removes the last entry and
// jsonb_agg returns NULL.
const queryRemoveSubscriber = `
UPDATE items
SET subscribers = COALESCE(
        (SELECT jsonb_agg(s)
         FROM jsonb_array_elements(subscribers) AS s
         WHERE s->>'user_id' <> $2),
        '[]'::jsonb),
    updated_at = now()
WHERE id = $1`

const queryCreateUser = `
INSERT INTO users (email, password_hash, activated)
VALUES ($1, $2, $3)
RETURNING id, last_login, last_password_change, created_at`

const querySaveUser = `
UPDATE users
SET email                = $2,
    password_hash        = $3,
    activated            = $4,
    last_login           = $5,
    last_password_change = $6
WHERE id = $1`

const queryGetUserByEmail = `
SELECT id, email, password_hash, activated, last_login, last_password_change, created_at
FROM users
WHERE email = $1`

const queryGetUserByID = `
SELECT id, email, password_hash, activated, last_login, last_password_change, created_at
FROM users
WHERE id = $1`

const queryGetUsersByIDs = `
SELECT id, email, password_hash, activated, last_login, last_password_change, created_at
FROM users
WHERE id = ANY($1)`
