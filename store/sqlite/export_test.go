package sqlite

import "context"

// CorruptForTest runs raw SQL so tests can plant undecodable rows.
func (s *Store) CorruptForTest(ctx context.Context, stmt string) error {
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}
