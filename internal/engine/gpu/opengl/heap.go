package opengl

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/objengine/internal/engine/gpu"
)

// Heap is a descriptor heap: a fixed table of texture views.
type Heap struct {
	slots []gpu.Texture
}

func (h *Heap) Capacity() int { return len(h.slots) }

func (h *Heap) SetTexture(slot int, tex gpu.Texture) error {
	if slot < 0 || slot >= len(h.slots) {
		return fmt.Errorf("descriptor slot %d out of range [0, %d)", slot, len(h.slots))
	}
	h.slots[slot] = tex
	return nil
}

func (h *Heap) Texture(slot int) gpu.Texture {
	if slot < 0 || slot >= len(h.slots) {
		return nil
	}
	return h.slots[slot]
}

// Release drops the views. Textures are owned by the texture manager.
func (h *Heap) Release() {
	h.slots = nil
}

// HeapAllocator creates heaps.
type HeapAllocator struct{}

func (HeapAllocator) NewDescriptorHeap(capacity int) (gpu.DescriptorHeap, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid descriptor heap capacity %d", capacity)
	}
	return &Heap{slots: make([]gpu.Texture, capacity)}, nil
}

// TextureUploader creates mipmapped, repeating 2D textures.
type TextureUploader struct {
	Anisotropy float32
}

// Upload creates a GL texture from img.
func (u TextureUploader) Upload(img *image.RGBA) (uint32, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return 0, fmt.Errorf("empty image")
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	if u.Anisotropy > 1 {
		gl.TexParameterf(gl.TEXTURE_2D, gl.TEXTURE_MAX_ANISOTROPY, u.Anisotropy)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if errCode := gl.GetError(); errCode != gl.NO_ERROR {
		gl.DeleteTextures(1, &id)
		return 0, fmt.Errorf("texture upload: GL error 0x%x", errCode)
	}
	return id, nil
}

// Delete frees a texture.
func (TextureUploader) Delete(id uint32) {
	gl.DeleteTextures(1, &id)
}
