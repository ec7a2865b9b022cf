package store

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/devvoxel/itemdb/internal/item"
	"github.com/devvoxel/itemdb/internal/model"
)

// Archive layout: one payload file per record under items/, the namespace
// segment split off the key at its first colon. Keys without a namespace
// use the flat layout items/<name>.item.
const (
	archivePrefix = "items/"
	archiveExt    = ".item"
)

// ExportReport summarizes one export run. Per-entry failures are collected
// in Errors without aborting the rest.
type ExportReport struct {
	Exported int
	Errors   []string
}

// ImportReport summarizes one import run. A dry run tallies what would
// happen; a real run counts only entries that were actually saved, so a
// failing entry shows up in Errors and nowhere else.
type ImportReport struct {
	Total   int
	Created int
	Updated int
	DryRun  bool
	Errors  []string
}

func (r *ImportReport) tally(existed bool) {
	if existed {
		r.Updated++
	} else {
		r.Created++
	}
}

// ExportToZip writes every cached record, optionally filtered to one
// namespace, into a zip archive at dest. A single audit line summarizes the
// run.
func (s *Store) ExportToZip(ctx context.Context, dest, namespace, editor string) (*ExportReport, error) {
	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	report := &ExportReport{}

	for _, key := range s.Keys() {
		if namespace != "" && !strings.HasPrefix(key, namespace+":") {
			continue
		}
		rec := s.Record(key)
		if rec == nil {
			continue
		}
		payload, err := item.Encode(rec.Item)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		w, err := zw.Create(keyToEntry(key))
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("archive entry %s: %w", key, err)
		}
		if _, err := w.Write([]byte(payload)); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("archive entry %s: %w", key, err)
		}
		report.Exported++
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	details := fmt.Sprintf("op=%s file=%s exported=%d errors=%d", uuid.NewString(), path.Base(dest), report.Exported, len(report.Errors))
	if err := s.backend.RecordAudit(ctx, "export", "", editor, details, s.backend.Now()); err != nil {
		s.log.Warn(ctx, "export audit failed", "error", err)
	}
	s.log.Info(ctx, "export finished", "file", dest, "exported", report.Exported, "errors", len(report.Errors))
	return report, nil
}

// ImportFromZip walks payload entries in the archive at src and replaces
// the corresponding records, or only tallies what would happen when dryRun
// is set. Independent entry failures do not abort the rest; a fatal archive
// error does.
func (s *Store) ImportFromZip(ctx context.Context, src, namespace string, dryRun bool, editor string) (*ImportReport, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	report := &ImportReport{DryRun: dryRun}
	comment := "Imported from " + path.Base(src)

	for _, zf := range sortedEntries(r.File) {
		key, ok := entryToKey(zf.Name, namespace)
		if !ok {
			continue
		}
		report.Total++
		existed := s.Exists(key)
		if dryRun {
			report.tally(existed)
			continue
		}

		it, err := readEntry(zf)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", zf.Name, err))
			continue
		}
		if !s.Replace(ctx, key, it, editor, comment) {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: save failed", zf.Name))
			continue
		}
		report.tally(existed)
	}

	if !dryRun {
		details := fmt.Sprintf("op=%s file=%s total=%d created=%d updated=%d errors=%d",
			uuid.NewString(), path.Base(src), report.Total, report.Created, report.Updated, len(report.Errors))
		if err := s.backend.RecordAudit(ctx, "import", "", editor, details, s.backend.Now()); err != nil {
			s.log.Warn(ctx, "import audit failed", "error", err)
		}
	}
	s.log.Info(ctx, "import finished", "file", src, "dry_run", dryRun,
		"total", report.Total, "created", report.Created, "updated", report.Updated, "errors", len(report.Errors))
	return report, nil
}

func readEntry(zf *zip.File) (*item.Item, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return item.Decode(string(payload))
}

func sortedEntries(files []*zip.File) []*zip.File {
	out := append([]*zip.File(nil), files...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// keyToEntry maps "ns:name" to "items/ns/name.item" and a namespace-less
// key to "items/<key>.item". Colons past the first are path-unsafe on some
// filesystems and are replaced.
func keyToEntry(key string) string {
	ns, name, found := strings.Cut(key, ":")
	if !found {
		return archivePrefix + key + archiveExt
	}
	return archivePrefix + ns + "/" + strings.ReplaceAll(name, ":", "_") + archiveExt
}

// entryToKey maps a payload entry path back to a record key, applying the
// optional namespace override. Directory separators inside the entry become
// key separators, so a nested items/ns/a/b.item yields ns:a:b. Entries
// outside items/ or without the payload extension are ignored.
func entryToKey(name, namespace string) (string, bool) {
	if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveExt) {
		return "", false
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveExt)
	if trimmed == "" || strings.HasSuffix(trimmed, "/") {
		return "", false
	}

	base := trimmed
	ns := ""
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		ns = trimmed[:i]
		base = strings.ReplaceAll(trimmed[i+1:], "/", ":")
	}
	if base == "" {
		return "", false
	}
	if namespace != "" {
		ns = namespace
	}
	if ns == "" {
		return model.NormalizeKey(base), true
	}
	return model.NormalizeKey(ns + ":" + base), true
}
