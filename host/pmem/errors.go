// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pmem

import "fmt"

// wrapf builds an error prefixed with the package name, matching the style
// used by the fmt.Errorf calls elsewhere in this package.
func wrapf(format string, a ...interface{}) error {
	return fmt.Errorf("pmem: "+format, a...)
}
