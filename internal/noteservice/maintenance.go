package noteservice

import (
	"context"

	"github.com/starford/quire/internal/reconcile"
)

// Reconcile runs a reconciliation sweep over the current notes folder.
func (s *Service) Reconcile(ctx context.Context, repair bool) (reconcile.Report, error) {
	f, _, err := s.bind()
	if err != nil {
		return reconcile.Report{}, err
	}
	return reconcile.Run(ctx, f, reconcile.Options{Repair: repair}, s.logger)
}
