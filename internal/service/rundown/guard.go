package rundown

// wipeRejected is the destructive-write guard: a structural write that
// takes a populated rundown (more than threshold rows) down to zero rows,
// without touching any document-level field in the same write, is almost
// certainly an accidental mass deletion rather than a deliberate "start a
// fresh show" edit (those typically change the title too). The guard runs
// before anything commits, so a rejected write reaches neither the
// operation log nor the snapshotter.
//
// force is the explicit confirmation path; the other escape hatch is
// deleting row-by-row, which never crosses the threshold in one write.
func wipeRejected(oldCount, newCount int, scalarsChanged bool, threshold int, force bool) bool {
	if force {
		return false
	}
	return oldCount > threshold && newCount == 0 && !scalarsChanged
}
