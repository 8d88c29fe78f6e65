// SPDX-License-Identifier: MPL-2.0

package rules

import (
	"path"

	"github.com/invowk/bundlemap/internal/asset"
)

type (
	// AddressByFileName addresses an asset by its file name without extension.
	AddressByFileName struct{}
	// AddressByFolderAndFileName addresses an asset as "{folder}_{file}".
	AddressByFolderAndFileName struct{}
	// AddressByGroupAndFileName addresses an asset as "{group}_{file}".
	AddressByGroupAndFileName struct{}
	// AddressDisable gives every asset an empty address.
	AddressDisable struct{}
)

func (AddressByFileName) Address(d Data) string {
	return asset.FileNameWithoutExt(d.AssetPath)
}

func (AddressByFolderAndFileName) Address(d Data) string {
	return path.Base(asset.Dir(d.AssetPath)) + "_" + asset.FileNameWithoutExt(d.AssetPath)
}

func (AddressByGroupAndFileName) Address(d Data) string {
	return d.GroupName + "_" + asset.FileNameWithoutExt(d.AssetPath)
}

func (AddressDisable) Address(Data) string { return "" }
