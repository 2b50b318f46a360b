package shared

// LedgerCloseLockKey is the redis key serialising period closes.
const LedgerCloseLockKey = "ledger:close:lock"
