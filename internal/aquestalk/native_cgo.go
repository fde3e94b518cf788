//go:build aquestalk && cgo

package aquestalk

/*
#cgo LDFLAGS: -lAquesTalk -lAqKanji2Koe
#include <stdlib.h>
#include <string.h>
#include <AquesTalk.h>
#include <AqKanji2Koe.h>
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"github.com/book-expert/logger"
	"github.com/book-expert/yukkuri-service/internal/core"
)

// koeBufferFactor sizes the conversion output buffer relative to the input.
const koeBufferFactor = 4

// ErrConverterClosed is returned when Convert is called after Close.
var ErrConverterClosed = errors.New("kanji converter released")

// NativeEngine implements core.Engine on top of the vendor shared libraries.
// The converter handle is not safe for concurrent use.
type NativeEngine struct {
	converter unsafe.Pointer
	log       *logger.Logger
}

// NewNativeEngine creates the converter from the dictionary at dictionaryPath.
func NewNativeEngine(dictionaryPath string, log *logger.Logger) (*NativeEngine, error) {
	if err := CheckCString(dictionaryPath); err != nil {
		return nil, err
	}

	cPath := C.CString(dictionaryPath)
	defer C.free(unsafe.Pointer(cPath))

	var errCode C.int

	handle := C.AqKanji2Koe_Create(cPath, &errCode)
	if handle == nil {
		return nil, fmt.Errorf("AqKanji2Koe_Create(%s) failed: code %d", dictionaryPath, int(errCode))
	}

	return &NativeEngine{converter: handle, log: log}, nil
}

// SetLicenseKey registers key with the library that owns product.
func (e *NativeEngine) SetLicenseKey(product, key string) error {
	if err := CheckCString(key); err != nil {
		return err
	}

	cKey := C.CString(key)
	defer C.free(unsafe.Pointer(cKey))

	var rc C.int

	switch product {
	case core.ProductAquesTalkUser:
		rc = C.AquesTalk_SetUsrKey(cKey)
	case core.ProductAquesTalkDev:
		rc = C.AquesTalk_SetDevKey(cKey)
	case core.ProductKanji2KoeDev:
		rc = C.AqKanji2Koe_SetDevKey(cKey)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownProduct, product)
	}

	if rc != 0 {
		return fmt.Errorf("license key for %s rejected: code %d", product, int(rc))
	}

	return nil
}

// Convert calls AqKanji2Koe_Convert. The call is not interruptible; ctx is only
// checked before entering the library.
func (e *NativeEngine) Convert(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if e.converter == nil {
		return "", ErrConverterClosed
	}

	if err := CheckCString(text); err != nil {
		return "", err
	}

	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))

	bufSize := C.int(len(text)*koeBufferFactor + 16)
	koe := (*C.char)(C.malloc(C.size_t(bufSize)))
	defer C.free(unsafe.Pointer(koe))

	rc := C.AqKanji2Koe_Convert(e.converter, cText, koe, bufSize)
	if rc != 0 {
		return "", fmt.Errorf("AqKanji2Koe_Convert failed: code %d", int(rc))
	}

	phonetic := C.GoString(koe)
	if phonetic == "" {
		return "", ErrEmptyConversion
	}

	return phonetic, nil
}

// Synthesize calls AquesTalk_Synthe_Utf8 with the resolved voice.
func (e *NativeEngine) Synthesize(ctx context.Context, phonetic string, params map[string]int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := CheckCString(phonetic); err != nil {
		return nil, err
	}

	voice, err := ResolveVoice(params)
	if err != nil {
		return nil, err
	}

	cVoice := C.AQTK_VOICE{
		bas: C.int(voice.Base),
		spd: C.int(voice.Speed),
		vol: C.int(voice.Volume),
		pit: C.int(voice.Pitch),
		acc: C.int(voice.Accent),
		lmd: C.int(voice.Lmd),
		fsc: C.int(voice.Fsc),
	}

	cKoe := C.CString(phonetic)
	defer C.free(unsafe.Pointer(cKoe))

	var size C.int

	wav := C.AquesTalk_Synthe_Utf8(&cVoice, cKoe, &size)
	if wav == nil {
		return nil, fmt.Errorf("AquesTalk_Synthe_Utf8 failed: code %d", int(size))
	}
	defer C.AquesTalk_FreeWave(wav)

	audioData := C.GoBytes(unsafe.Pointer(wav), size)

	checkErr := CheckWAV(audioData)
	if checkErr != nil {
		return nil, checkErr
	}

	return audioData, nil
}

// Close releases the converter handle.
func (e *NativeEngine) Close() error {
	if e.converter != nil {
		C.AqKanji2Koe_Release(e.converter)
		e.converter = nil
	}

	return nil
}
