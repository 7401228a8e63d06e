package synthesis

import (
	"fmt"

	"github.com/phrazzld/reel-api/internal/domain"
)

// VideoGenerationRequest describes a plain text-to-video job, optionally
// conditioned on a reference image.
type VideoGenerationRequest struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	Quality        domain.Quality
	Image          *domain.InputImage
}

func (r VideoGenerationRequest) validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("%w: prompt cannot be empty", domain.ErrValidation)
	}
	return nil
}

func (r VideoGenerationRequest) synthesis() domain.SynthesisRequest {
	return domain.SynthesisRequest{
		Quality:        r.Quality,
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		AspectRatio:    r.AspectRatio,
		Image:          r.Image,
	}
}

// LogoAnimationRequest animates an uploaded logo image according to a
// motion description.
type LogoAnimationRequest struct {
	Logo    domain.InputImage
	Motion  string
	Quality domain.Quality
}

func (r LogoAnimationRequest) validate() error {
	if len(r.Logo.Bytes) == 0 {
		return fmt.Errorf("%w: logo image cannot be empty", domain.ErrValidation)
	}
	if r.Motion == "" {
		return fmt.Errorf("%w: motion description cannot be empty", domain.ErrValidation)
	}
	return nil
}

func (r LogoAnimationRequest) synthesis() domain.SynthesisRequest {
	logo := r.Logo
	return domain.SynthesisRequest{
		Quality: r.Quality,
		Prompt: fmt.Sprintf(
			"Animate the provided logo. Keep the logo shape, colors, and text intact. Motion: %s",
			r.Motion),
		Image: &logo,
	}
}

// ImageRemedyRequest turns a flawed image into a short corrective video
// following a remedy instruction.
type ImageRemedyRequest struct {
	Image       domain.InputImage
	Instruction string
	Quality     domain.Quality
}

func (r ImageRemedyRequest) validate() error {
	if len(r.Image.Bytes) == 0 {
		return fmt.Errorf("%w: input image cannot be empty", domain.ErrValidation)
	}
	if r.Instruction == "" {
		return fmt.Errorf("%w: remedy instruction cannot be empty", domain.ErrValidation)
	}
	return nil
}

func (r ImageRemedyRequest) synthesis() domain.SynthesisRequest {
	img := r.Image
	return domain.SynthesisRequest{
		Quality: r.Quality,
		Prompt: fmt.Sprintf(
			"Using the provided image as the starting frame, %s", r.Instruction),
		Image: &img,
	}
}

// MontageClip is one scene of a montage.
type MontageClip struct {
	Prompt string
	Image  *domain.InputImage
}

// MontageRequest generates a sequence of clips, one synthesis operation
// per clip, all under a single cancellable job.
type MontageRequest struct {
	Clips   []MontageClip
	Quality domain.Quality
}

func (r MontageRequest) validate() error {
	if len(r.Clips) == 0 {
		return fmt.Errorf("%w: montage requires at least one clip", domain.ErrValidation)
	}
	for i, clip := range r.Clips {
		if clip.Prompt == "" {
			return fmt.Errorf("%w: clip %d prompt cannot be empty", domain.ErrValidation, i+1)
		}
	}
	return nil
}

func (r MontageRequest) synthesis() []domain.SynthesisRequest {
	reqs := make([]domain.SynthesisRequest, 0, len(r.Clips))
	for _, clip := range r.Clips {
		reqs = append(reqs, domain.SynthesisRequest{
			Quality: r.Quality,
			Prompt:  clip.Prompt,
			Image:   clip.Image,
		})
	}
	return reqs
}
