package dataset

import (
	"github.com/YuminosukeSato/autotab/pkg/errors"
)

// Convert moves a dataset to the requested backend through the conversion
// graph. Converting to the dataset's own kind returns the receiver; edges the
// graph does not define surface ErrNotImplemented from the backend.
func Convert(d Dataset, kind Kind) (Dataset, error) {
	switch kind {
	case KindDense:
		out, err := d.ToDense()
		if err != nil {
			return nil, err
		}
		return out, nil
	case KindSparse:
		out, err := d.ToSparse()
		if err != nil {
			return nil, err
		}
		return out, nil
	case KindTable:
		out, err := d.ToTable()
		if err != nil {
			return nil, err
		}
		return out, nil
	case KindPartitioned:
		out, err := d.ToPartitioned()
		if err != nil {
			return nil, err
		}
		return out, nil
	case KindSeq:
		// The overlay cannot be reconstructed from row data alone.
		return nil, errors.Wrap(errors.ErrNotImplemented, "Convert to seq")
	default:
		return nil, errors.NewValueError("Convert", "unknown dataset kind")
	}
}
