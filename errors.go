/*
Copyright (C) 2026 the gridbench authors.
This file is part of gridbench.

gridbench is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridbench is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridbench.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridbench

import "errors"

// Failure conditions reported by this package. All of them are deterministic
// and propagate to the immediate caller unmodified; callers should test for
// them with errors.Is.
var (
	// ErrAxisNotFound is returned when none of a field's axes match the
	// aliases of a requested canonical axis.
	ErrAxisNotFound = errors.New("gridbench: axis not found")

	// ErrAxisAmbiguous is returned when more than one of a field's axes
	// match the aliases of a requested canonical axis.
	ErrAxisAmbiguous = errors.New("gridbench: axis ambiguous")

	// ErrUnitMismatch is returned when a unit conversion is requested
	// between units of incompatible physical dimensions.
	ErrUnitMismatch = errors.New("gridbench: unit mismatch")

	// ErrNonPositiveLog is returned when an axis of a relationship is
	// flagged log-scaled but holds values that are not strictly positive.
	ErrNonPositiveLog = errors.New("gridbench: non-positive log input")

	// ErrMissingAxis is returned when an operation requires an axis the
	// field does not have, such as a depth integral without a depth axis.
	ErrMissingAxis = errors.New("gridbench: missing axis")

	// ErrMeasureUndefined is returned when a measure cannot be derived,
	// such as a time width from a single time point without bounds.
	ErrMeasureUndefined = errors.New("gridbench: measure undefined")

	// ErrRegionNotFound is returned on lookup of an unknown region label.
	ErrRegionNotFound = errors.New("gridbench: region not found")

	// ErrRegionAmbiguous is returned when region raster discovery finds
	// zero or more than one candidate code array.
	ErrRegionAmbiguous = errors.New("gridbench: region ambiguous")
)
