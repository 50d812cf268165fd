package item

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Form field names accepted on create and update.
const (
	FieldName     = "namaBarang"
	FieldCategory = "kategori"
	FieldQuantity = "jumlah"
	FieldImage    = "image"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// MaxTextLength is the longest name, category or owner identity, in
// characters, that the barang table holds.
const MaxTextLength = 225

// Form is the raw, unvalidated item form.
type Form struct {
	Name     string `validate:"required,max=225"`
	Category string `validate:"required,max=225"`
	Quantity string `validate:"required"`
}

// FormFromValues reads the item fields out of submitted form values.
func FormFromValues(v url.Values) Form {
	return Form{
		Name:     v.Get(FieldName),
		Category: v.Get(FieldCategory),
		Quantity: v.Get(FieldQuantity),
	}
}

// Fields are the validated, typed values of a Form.
type Fields struct {
	Name     string
	Category string
	Quantity int
}

// Fields validates f. Every field is required, Name and Category hold at
// most MaxTextLength characters and Quantity must be a base-10 32-bit integer.
func (f Form) Fields() (Fields, error) {
	if err := getValidator().Struct(f); err != nil {
		return Fields{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	qty, err := strconv.ParseInt(strings.TrimSpace(f.Quantity), 10, 32)
	if err != nil {
		return Fields{}, fmt.Errorf("%w: %s is not a 32-bit integer", ErrInvalidInput, FieldQuantity)
	}
	return Fields{Name: f.Name, Category: f.Category, Quantity: int(qty)}, nil
}

// ImageExtension returns the lower-cased extension of filename (text after
// the last dot) if it is in allowed, else ErrImageFormat.
func ImageExtension(filename string, allowed []string) (string, error) {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return "", ErrImageFormat
	}
	ext := strings.ToLower(filename[i+1:])
	for _, a := range allowed {
		if ext != "" && ext == strings.ToLower(a) {
			return ext, nil
		}
	}
	return "", ErrImageFormat
}

// maxKeyLocalPart caps the owner-derived prefix of an image key so the key
// fits the image_path column whatever the identity length.
const maxKeyLocalPart = 64

// ImageKey builds the storage key for an image uploaded by owner at t:
// "<local part>_<YYYYMMDDhhmmss><microseconds>.<ext>". The local part is owner
// up to the first "@" with everything outside [A-Za-z0-9_] replaced by "_",
// cut to 64 characters.
func ImageKey(owner, ext string, t time.Time) string {
	local := owner
	if i := strings.Index(owner, "@"); i >= 0 {
		local = owner[:i]
	}
	if r := []rune(local); len(r) > maxKeyLocalPart {
		local = string(r[:maxKeyLocalPart])
	}
	local = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, local)

	stamp := t.Format("20060102150405") + fmt.Sprintf("%06d", t.Nanosecond()/1000)
	return local + "_" + stamp + "." + ext
}
