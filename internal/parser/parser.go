package parser

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"github.com/pcamen/innodump/internal/binio"
	"github.com/pcamen/innodump/internal/config"
	"github.com/pcamen/innodump/internal/inno"
	"github.com/pcamen/innodump/internal/loader"
	"github.com/pcamen/innodump/internal/timeutil"
)

// maxEntryCount bounds the entry counts read from the setup header.
// Counts beyond this mean a corrupt or misidentified header, not a real
// installer.
const maxEntryCount = 1 << 20

// Inspector reads structure information from installer executables.
type Inspector struct {
	file   io.ReadSeeker
	config *config.Config
	logger *slog.Logger

	offsets *loader.Offsets
	version inno.Version
}

// EntrySet holds the decoded entry lists of a setup header, in the order
// the header stores them.
type EntrySet struct {
	Components []inno.ComponentEntry
	Deletes    []inno.DeleteEntry
	Files      []inno.DataEntry
}

// Locate finds the setup loader offset table and identifies the data
// format version from the setup header banner.
func (p *Inspector) Locate() error {
	r := binio.NewReader(p.file)

	offsets, err := loader.Find(r)
	if err != nil {
		return fmt.Errorf("failed to locate setup payload: %w", err)
	}
	p.offsets = offsets

	p.logger.Info("found setup loader offset table",
		"loader_version", offsets.LoaderVersion,
		"header_offset", offsets.HeaderOffset,
		"data_offset", offsets.DataOffset,
		"exe_checksum_type", offsets.ExeChecksum.Type,
	)

	version, err := loader.IdentifyVersion(r, offsets)
	if err != nil {
		return fmt.Errorf("failed to identify setup data version: %w", err)
	}
	p.version = version

	p.logger.Info("identified setup data version",
		"version", version,
		"bits", version.Bits,
		"unicode", version.Unicode,
	)

	return nil
}

// Version returns the identified data format version. Only valid after a
// successful Locate.
func (p *Inspector) Version() inno.Version {
	return p.version
}

// Offsets returns the decoded offset table. Only valid after a successful
// Locate.
func (p *Inspector) Offsets() *loader.Offsets {
	return p.offsets
}

// DecodeEntries decodes the entry lists of a stored setup header stream:
// past the version banner come the entry counts, then the component,
// deletion and file location records in that fixed sequence. Compressed
// header streams must be decompressed before they reach the reader.
// Only valid after a successful Locate.
func (p *Inspector) DecodeEntries() (*EntrySet, error) {
	r := binio.NewReader(p.file)
	r.Seek(uint64(p.offsets.HeaderOffset) + loader.VersionBannerSize)

	componentCount := int(r.U32())
	deleteCount := int(r.U32())
	dataCount := int(r.U32())
	if r.Failed() {
		return nil, fmt.Errorf("short read in setup header at offset %d", p.offsets.HeaderOffset)
	}
	if componentCount > maxEntryCount || deleteCount > maxEntryCount || dataCount > maxEntryCount {
		return nil, fmt.Errorf("implausible entry counts in setup header: %d/%d/%d",
			componentCount, deleteCount, dataCount)
	}

	p.logger.Debug("decoding setup header entries",
		"components", componentCount,
		"delete_entries", deleteCount,
		"files", dataCount,
	)

	set := &EntrySet{}
	var err error
	if set.Components, err = DecodeComponentEntries(r, p.version, componentCount); err != nil {
		return nil, err
	}
	if set.Deletes, err = DecodeDeleteEntries(r, p.version, deleteCount); err != nil {
		return nil, err
	}
	if set.Files, err = DecodeDataEntries(r, p.version, dataCount); err != nil {
		return nil, err
	}

	return set, nil
}

// DecodeDataEntries decodes count data entries from the reader's current
// position. The reader's failure flag is checked once after the batch:
// record decoding is strictly sequential, so any failure invalidates the
// whole batch.
func DecodeDataEntries(r *binio.Reader, v inno.Version, count int) ([]inno.DataEntry, error) {
	entries := make([]inno.DataEntry, count)
	for i := range entries {
		entries[i].Load(r, v)
	}
	if r.Failed() {
		return nil, fmt.Errorf("short read while decoding %d data entries", count)
	}
	return entries, nil
}

// DecodeDeleteEntries decodes count deletion entries.
func DecodeDeleteEntries(r *binio.Reader, v inno.Version, count int) ([]inno.DeleteEntry, error) {
	entries := make([]inno.DeleteEntry, count)
	for i := range entries {
		entries[i].Load(r, v)
	}
	if r.Failed() {
		return nil, fmt.Errorf("short read while decoding %d delete entries", count)
	}
	return entries, nil
}

// DecodeComponentEntries decodes count component entries.
func DecodeComponentEntries(r *binio.Reader, v inno.Version, count int) ([]inno.ComponentEntry, error) {
	entries := make([]inno.ComponentEntry, count)
	for i := range entries {
		entries[i].Load(r, v)
	}
	if r.Failed() {
		return nil, fmt.Errorf("short read while decoding %d component entries", count)
	}
	return entries, nil
}

// Parse inspects the given installer executable: locates the setup
// payload, identifies the format version and decodes the setup header
// entries.
func Parse(file *os.File, cfg *config.Config) error {
	logger := slog.With(
		"file", cfg.InputFile,
	)

	logger.Info("starting")

	if err := sniff(file); err != nil {
		return err
	}

	inspector := &Inspector{
		file:   file,
		config: cfg,
		logger: logger,
	}

	if err := inspector.Locate(); err != nil {
		return err
	}

	if cfg.DryRun {
		logger.Info("dry run, skipping entry decoding")
		return nil
	}

	entries, err := inspector.DecodeEntries()
	if err != nil {
		return fmt.Errorf("failed to decode setup header entries: %w", err)
	}

	logger.Info("decoded setup header entries",
		"components", len(entries.Components),
		"delete_entries", len(entries.Deletes),
		"files", len(entries.Files),
	)

	if cfg.ListFiles {
		inspector.list(entries)
	}

	return nil
}

// list logs every decoded entry. A file timestamp's UTC clock time is
// reinterpreted in the zone configured via --timezone (ToLocalTime) and the
// resulting instant is displayed in UTC.
func (p *Inspector) list(entries *EntrySet) {
	for i, c := range entries.Components {
		p.logger.Info("component entry",
			"index", i,
			"name", c.Name,
			"description", c.Description,
			"types", c.Types,
			"size", c.Size,
		)
	}

	for i, d := range entries.Deletes {
		p.logger.Info("delete entry",
			"index", i,
			"name", d.Name,
			"type", d.Type,
		)
	}

	for i, f := range entries.Files {
		p.logger.Info("file entry",
			"index", i,
			"first_slice", f.Chunk.FirstSlice,
			"last_slice", f.Chunk.LastSlice,
			"chunk_offset", f.Chunk.Offset,
			"file_offset", f.File.Offset,
			"file_size", f.File.Size,
			"compression", f.Chunk.Compression,
			"encrypted", f.Chunk.Encrypted,
			"checksum", f.File.Checksum.Type,
			"mtime", timeutil.FormatTime(timeutil.ToLocalTime(f.Timestamp)),
		)
	}
}

// sniff rejects inputs that are not Windows executables before any PE
// parsing happens.
func sniff(file *os.File) error {
	head := make([]byte, 261)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind input: %w", err)
	}

	kind, _ := filetype.Match(head[:n])
	if kind != matchers.TypeExe {
		return fmt.Errorf("not a Windows executable (detected %q)", kind.Extension)
	}
	return nil
}
