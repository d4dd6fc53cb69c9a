package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/cursor"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/database"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/mediatypes"
)

// Live Photo roles.
const (
	LiveRolePrimary = 0 // the visible still
	LiveRoleMotion  = 1 // the hidden motion component
)

var (
	// ErrMissingRel is returned when a row has no rel.
	ErrMissingRel = errors.New("asset has no rel")

	// ErrInvalidText is returned when rel, id or dt is not valid UTF-8.
	// Such values cannot travel through a cursor token unchanged.
	ErrInvalidText = errors.New("asset text is not valid UTF-8")

	// ErrNotFound is returned when no row has the requested rel.
	ErrNotFound = errors.New("asset not found")
)

// idNamespace seeds the name-based ids given to rows that arrive without one.
var idNamespace = uuid.MustParse("4c0b9a3e-6f0e-5d3c-9a61-3f2a9d6c1e20")

// Asset is one indexed file.
type Asset struct {
	Rel             string  `db:"rel" json:"rel"`
	ID              string  `db:"id" json:"id"`
	ParentAlbumPath string  `db:"parent_album_path" json:"parent_album_path"`
	DT              *string `db:"dt" json:"dt"`
	TS              *int64  `db:"ts" json:"ts,omitempty"`

	Bytes                *int64          `db:"bytes" json:"bytes,omitempty"`
	Mime                 *string         `db:"mime" json:"mime,omitempty"`
	Make                 *string         `db:"make" json:"make,omitempty"`
	Model                *string         `db:"model" json:"model,omitempty"`
	Lens                 *string         `db:"lens" json:"lens,omitempty"`
	ISO                  *int64          `db:"iso" json:"iso,omitempty"`
	FNumber              *float64        `db:"f_number" json:"f_number,omitempty"`
	ExposureTime         *float64        `db:"exposure_time" json:"exposure_time,omitempty"`
	ExposureCompensation *float64        `db:"exposure_compensation" json:"exposure_compensation,omitempty"`
	FocalLength          *float64        `db:"focal_length" json:"focal_length,omitempty"`
	W                    *int64          `db:"w" json:"w,omitempty"`
	H                    *int64          `db:"h" json:"h,omitempty"`
	GPS                  *types.JSONText `db:"gps" json:"gps,omitempty"`
	ContentID            *string         `db:"content_id" json:"content_id,omitempty"`
	FrameRate            *float64        `db:"frame_rate" json:"frame_rate,omitempty"`
	Codec                *string         `db:"codec" json:"codec,omitempty"`
	StillImageTime       *float64        `db:"still_image_time" json:"still_image_time,omitempty"`
	Dur                  *float64        `db:"dur" json:"dur,omitempty"`

	OriginalRelPath      *string `db:"original_rel_path" json:"original_rel_path,omitempty"`
	OriginalAlbumID      *string `db:"original_album_id" json:"original_album_id,omitempty"`
	OriginalAlbumSubpath *string `db:"original_album_subpath" json:"original_album_subpath,omitempty"`

	LiveRole       int     `db:"live_role" json:"live_role"`
	LivePartnerRel *string `db:"live_partner_rel" json:"live_partner_rel,omitempty"`

	AspectRatio    *float64 `db:"aspect_ratio" json:"aspect_ratio,omitempty"`
	Year           *int     `db:"year" json:"year,omitempty"`
	Month          *int     `db:"month" json:"month,omitempty"`
	MediaType      *int     `db:"media_type" json:"media_type,omitempty"`
	IsFavorite     bool     `db:"is_favorite" json:"is_favorite"`
	Location       *string  `db:"location" json:"location,omitempty"`
	MicroThumbnail []byte   `db:"micro_thumbnail" json:"micro_thumbnail,omitempty"`

	// Extra holds fields of an incoming record that have no column. It is
	// never written to the index.
	Extra map[string]any `db:"-" json:"-"`
}

// UnmarshalJSON decodes a scanner record, collecting unknown keys in Extra.
func (a *Asset) UnmarshalJSON(data []byte) error {
	type plain Asset
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for key, raw := range all {
		if database.HasColumn(key) {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		p.Extra[key] = v
	}

	*a = Asset(p)
	return nil
}

// Cursor returns the listing position of a.
func (a Asset) Cursor() cursor.Cursor {
	return cursor.New(a.DT, a.ID)
}

// IsVideo reports whether the row is classified as a video.
func (a Asset) IsVideo() bool {
	return a.MediaType != nil && mediatypes.MediaType(*a.MediaType) == mediatypes.MediaTypeVideo
}

// Geometry is the projection needed to lay out a grid.
type Geometry struct {
	Rel            string   `db:"rel" json:"rel"`
	ID             string   `db:"id" json:"id"`
	DT             *string  `db:"dt" json:"dt"`
	W              *int64   `db:"w" json:"w,omitempty"`
	H              *int64   `db:"h" json:"h,omitempty"`
	AspectRatio    *float64 `db:"aspect_ratio" json:"aspect_ratio,omitempty"`
	MediaType      *int     `db:"media_type" json:"media_type,omitempty"`
	IsFavorite     bool     `db:"is_favorite" json:"is_favorite"`
	LiveRole       int      `db:"live_role" json:"live_role"`
	LivePartnerRel *string  `db:"live_partner_rel" json:"live_partner_rel,omitempty"`
	Dur            *float64 `db:"dur" json:"dur,omitempty"`
	MicroThumbnail []byte   `db:"micro_thumbnail" json:"micro_thumbnail,omitempty"`
}

// IsLive reports whether the row is paired with a Live Photo partner.
func (g Geometry) IsLive() bool {
	return g.LivePartnerRel != nil
}

// Album is one distinct parent_album_path with its row count. The library
// root is the album "".
type Album struct {
	Path   string  `db:"path" json:"path"`
	Count  int     `db:"count" json:"count"`
	Latest *string `db:"latest" json:"latest,omitempty"`
}

// LiveRoleUpdate sets the pairing of one row.
type LiveRoleUpdate struct {
	Rel        string  `json:"rel"`
	Role       int     `json:"role"`
	PartnerRel *string `json:"partner_rel,omitempty"`
}

// Page is one cursor-paginated slice of a listing.
type Page struct {
	Items      []Asset `json:"items"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// Viewport is the first page of a listing together with its total size.
type Viewport struct {
	Items []Asset
	Total int
	// Cursor continues the listing; nil when Items is everything.
	Cursor *cursor.Cursor
}

// NormalizeRel converts p to the library-relative form used as row key:
// forward slashes, no leading "./" or "/".
func NormalizeRel(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			return p
		}
	}
}

// ParentAlbum returns the album holding rel, "" for root-level files.
func ParentAlbum(rel string) string {
	dir := path.Dir(NormalizeRel(rel))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// AssetID returns the id given to rel when the scanner supplies none.
func AssetID(rel string) string {
	return uuid.NewSHA1(idNamespace, []byte(rel)).String()
}

// normalize fills the derived fields of a before it is written.
func (a *Asset) normalize() error {
	a.Rel = NormalizeRel(strings.TrimSpace(a.Rel))
	if a.Rel == "" {
		return ErrMissingRel
	}
	if !utf8.ValidString(a.Rel) || !utf8.ValidString(a.ID) || (a.DT != nil && !utf8.ValidString(*a.DT)) {
		return fmt.Errorf("asset %q: %w", a.Rel, ErrInvalidText)
	}

	if a.ParentAlbumPath == "" {
		a.ParentAlbumPath = ParentAlbum(a.Rel)
	} else {
		a.ParentAlbumPath = strings.Trim(NormalizeRel(a.ParentAlbumPath), "/")
	}

	if a.ID == "" {
		a.ID = AssetID(a.Rel)
	}

	if a.DT != nil && *a.DT == "" {
		a.DT = nil
	}
	if a.DT != nil {
		if a.Year == nil || a.Month == nil {
			if y, m, ok := yearMonth(*a.DT); ok {
				a.Year, a.Month = &y, &m
			}
		}
		if a.TS == nil {
			if t, err := parseTimestamp(*a.DT); err == nil {
				ts := t.Unix()
				a.TS = &ts
			}
		}
	}

	if a.AspectRatio == nil && a.W != nil && a.H != nil && *a.W > 0 && *a.H > 0 {
		ratio := float64(*a.W) / float64(*a.H)
		a.AspectRatio = &ratio
	}

	if a.MediaType == nil {
		mime := ""
		if a.Mime != nil {
			mime = *a.Mime
		}
		if mt, ok := mediatypes.Classify(mime, a.Rel); ok {
			v := int(mt)
			a.MediaType = &v
		}
	}

	if a.LiveRole != LiveRolePrimary && a.LiveRole != LiveRoleMotion {
		return fmt.Errorf("asset %s: invalid live role %d", a.Rel, a.LiveRole)
	}
	if a.LivePartnerRel != nil {
		partner := NormalizeRel(*a.LivePartnerRel)
		a.LivePartnerRel = &partner
	}

	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func yearMonth(dt string) (int, int, bool) {
	if len(dt) < 7 || dt[4] != '-' {
		return 0, 0, false
	}
	var y, m int
	if _, err := fmt.Sscanf(dt[:7], "%4d-%2d", &y, &m); err != nil || m < 1 || m > 12 {
		return 0, 0, false
	}
	return y, m, true
}
