package cachefmt

import (
	"compress/gzip"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/kextkit/kextmanager/kext"
)

// currencySkew is the exact offset the mtime-currency rule requires
// between a cache file and the directory it describes: a real
// repository write always touches the directory first and the cache
// second, one second apart by convention, so a >= relaxation would
// admit a cache written from a stale scan; see DESIGN.md.
const currencySkew = time.Second

// IsCurrent reports whether the cache file at cachePath is exactly
// currencySkew newer than the directory at dirPath. A missing cache
// file is never current.
func IsCurrent(cachePath, dirPath string) (bool, error) {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "statting cache %s", cachePath)
	}
	dirInfo, err := os.Stat(dirPath)
	if err != nil {
		return false, errors.Wrapf(err, "statting repository %s", dirPath)
	}
	return cacheInfo.ModTime().Equal(dirInfo.ModTime().Add(currencySkew)), nil
}

// Load reconstructs a Repository from the gzip-compressed plist at
// cachePath, without touching the filesystem the repository describes.
// lookup resolves a dependency identifier to its current index head,
// wired by the caller to (*kext.Manager).RawGet exactly as diskrepo
// does, so cached bundles resolve dependencies the same way live ones
// do.
func Load(cachePath string, lookup lookupFunc) (*CachedRepository, error) {
	f, err := os.Open(cachePath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening cache %s", cachePath)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, kext.NewError(kext.KindCompression, err, "decompressing cache %s", cachePath)
	}
	defer gz.Close()

	root, err := decodePlist(gz)
	if err != nil {
		return nil, kext.NewError(kext.KindSerialization, err, "parsing cache %s", cachePath)
	}

	return newCachedRepository(root, lookup)
}

// Save persists repo's candidate and bad kexts as a gzip-compressed
// plist at cachePath, guarded by an advisory lock on a sibling ".lock"
// file so a second instance of the owning tool cannot interleave a
// write with this one.
func Save(repo kext.Repository, cachePath string) error {
	lock := flock.NewFlock(cachePath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return kext.NewError(kext.KindCache, err, "locking cache %s", cachePath)
	}
	if !locked {
		return kext.NewError(kext.KindCache, nil, "cache %s is locked by another process", cachePath)
	}
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return errors.Wrapf(err, "preparing cache directory for %s", cachePath)
	}

	tmp := cachePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "creating cache %s", tmp)
	}

	gz := gzip.NewWriter(f)
	root := encodeRepository(repo)
	if err := encodePlist(gz, root); err != nil {
		gz.Close()
		f.Close()
		os.Remove(tmp)
		return kext.NewError(kext.KindSerialization, err, "encoding cache %s", cachePath)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return kext.NewError(kext.KindCompression, err, "flushing cache %s", cachePath)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "closing cache %s", tmp)
	}

	return os.Rename(tmp, cachePath)
}

func decodePlist(r io.Reader) (plistValue, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			return plistValue{}, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "plist" {
			continue
		}
		inner, err := dec.Token()
		if err != nil {
			return plistValue{}, err
		}
		dictStart, ok := inner.(xml.StartElement)
		if !ok {
			return plistValue{}, errors.New("plist: missing root dict")
		}
		var root plistValue
		if err := root.UnmarshalXML(dec, dictStart); err != nil {
			return plistValue{}, err
		}
		return root, nil
	}
}

func encodePlist(w io.Writer, root plistValue) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	start := xml.StartElement{Name: xml.Name{Local: "plist"}, Attr: []xml.Attr{{Name: xml.Name{Local: "version"}, Value: "1.0"}}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := enc.Encode(root); err != nil {
		return err
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return err
	}
	return enc.Flush()
}
