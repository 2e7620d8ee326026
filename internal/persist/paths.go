// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persist

import (
	"fmt"
	"path/filepath"
)

// PathFor builds <root>/<hash[0..2]>/<hash[2..4]>/<hash-hex>-<nonce>,
// sharding two hex-nibble levels deep so no single directory holds
// every cached file.
func PathFor(root string, hash uint64, nonce string) string {
	hex := fmt.Sprintf("%016x", hash)
	return filepath.Join(root, hex[0:2], hex[2:4], hex+"-"+nonce)
}

func tmpPath(finalPath string) string {
	return finalPath + ".tmp"
}
