package filing

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultExtension is assumed when neither the filing record nor its URL
// carries a usable extension. Nearly every filing on the source is a PDF.
const DefaultExtension = "pdf"

// companyIDPrefix is the registry prefix stripped from company IDs when
// building object keys, keeping keys aligned with the downstream indexers.
const companyIDPrefix = "C-"

var allowedExtensions = map[string]bool{
	"pdf":  true,
	"html": true,
	"htm":  true,
	"doc":  true,
	"docx": true,
	"xls":  true,
	"xlsx": true,
	"zip":  true,
	"txt":  true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ResolveExtension picks the file extension for a filing: the explicit
// attribute wins, then the URL's last path segment if its extension is on
// the allow-list, then DefaultExtension.
func ResolveExtension(explicit, sourceURL string) string {
	if ext := normalizeExtension(explicit); ext != "" {
		return ext
	}
	if ext := normalizeExtension(path.Ext(urlFilename(sourceURL))); allowedExtensions[ext] {
		return ext
	}
	return DefaultExtension
}

// StorageKey derives the deterministic object key for a filing:
// {exchange}/{company}/{YYYY}/{MM}/{DD}/{sourceID}.{ext}. The same filing
// always maps to the same key, so re-acquisition overwrites rather than
// duplicates.
func StorageKey(f Filing) string {
	company := strings.TrimPrefix(f.CompanyID, companyIDPrefix)
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%s.%s",
		f.Exchange,
		company,
		f.ReportDate.Year(),
		int(f.ReportDate.Month()),
		f.ReportDate.Day(),
		f.SourceID,
		ResolveExtension(f.FileExtension, f.SourceURL),
	)
}

// LocalRelPath derives the slash-separated path of the local copy relative
// to the configured root. Unlike the object key it keeps the full company ID
// and the source filename, matching how operators browse the mirror.
func LocalRelPath(f Filing) string {
	name := SanitizeFilename(urlFilename(f.SourceURL))
	if name == "" || name == "." {
		name = SanitizeFilename(f.SourceID) + "." + ResolveExtension(f.FileExtension, f.SourceURL)
	}
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%s",
		f.Exchange,
		f.CompanyID,
		f.ReportDate.Year(),
		int(f.ReportDate.Month()),
		f.ReportDate.Day(),
		name,
	)
}

// SanitizeFilename collapses any run of characters outside [a-zA-Z0-9._-]
// into a single underscore.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func urlFilename(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Path == "" {
		return ""
	}
	return path.Base(u.Path)
}
