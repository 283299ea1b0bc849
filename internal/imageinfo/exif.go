package imageinfo

import (
	"bytes"
	"encoding/binary"
)

const exifOrientationTag = 0x0112

// jpegOrientation returns the EXIF orientation (1..8) stored in the APP1
// segment of a JPEG, or 1 when there is none or head is too short to tell.
func jpegOrientation(head []byte) int {
	if len(head) < 4 || head[0] != 0xFF || head[1] != 0xD8 {
		return 1
	}
	pos := 2
	for pos+4 <= len(head) {
		if head[pos] != 0xFF {
			return 1
		}
		marker := head[pos+1]
		switch {
		case marker == 0xFF:
			pos++
			continue
		case marker == 0xD8 || (marker >= 0xD0 && marker <= 0xD7):
			pos += 2
			continue
		case marker == 0xDA || marker == 0xD9:
			return 1
		}
		size := int(binary.BigEndian.Uint16(head[pos+2:]))
		if size < 2 {
			return 1
		}
		end := pos + 2 + size
		if marker == 0xE1 && end <= len(head) {
			if o := exifOrientation(head[pos+4 : end]); o != 0 {
				return o
			}
		}
		pos = end
	}
	return 1
}

// exifOrientation reads the orientation tag from IFD0 of an APP1 payload.
// It returns 0 when the payload is not EXIF or carries no valid tag.
func exifOrientation(payload []byte) int {
	tiff, ok := bytes.CutPrefix(payload, []byte("Exif\x00\x00"))
	if !ok || len(tiff) < 8 {
		return 0
	}
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0
	}
	if order.Uint16(tiff[2:]) != 42 {
		return 0
	}
	ifd := int(order.Uint32(tiff[4:]))
	if ifd < 8 || ifd+2 > len(tiff) {
		return 0
	}
	count := int(order.Uint16(tiff[ifd:]))
	for i := range count {
		entry := ifd + 2 + i*12
		if entry+12 > len(tiff) {
			return 0
		}
		if order.Uint16(tiff[entry:]) != exifOrientationTag {
			continue
		}
		// SHORT, count 1: value sits in the first two bytes of the value field.
		if order.Uint16(tiff[entry+2:]) != 3 {
			return 0
		}
		o := int(order.Uint16(tiff[entry+8:]))
		if o < 1 || o > 8 {
			return 0
		}
		return o
	}
	return 0
}

// swapsAxes reports whether an orientation rotates the image by 90 degrees.
func swapsAxes(orientation int) bool {
	return orientation >= 5 && orientation <= 8
}
