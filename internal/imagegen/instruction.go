package imagegen

import "strings"

const NegativePrompt = "unrealistic, cartoon, anime, low quality, blurry, distorted features, inconsistent with reference images, modern clothing"

// BuildInstruction returns the portrait prompt. The prompt references all
// three generations even though only the grandfather photo is sent as the
// conditioning image.
func BuildInstruction() string {
	parts := []string{
		"Create a realistic historical portrait of a man in his 60s-70s who would be the great-grandfather of this lineage.",
		"Analyze the facial features, bone structure, and genetic traits visible in all three reference photos of the grandfather, father, and son.",
		"Maintain consistent ethnic features and family resemblance.",
		"The portrait should have authentic 1850s-1870s styling with period-appropriate clothing, facial hair, and sepia-toned photographic qualities of that era.",
		"The result should look like a genuine historical photograph discovered in a family archive.",
	}
	return strings.Join(parts, " ")
}

// PrimaryInput builds the SDXL payload.
func PrimaryInput(reference string, seed int) map[string]any {
	return map[string]any{
		"prompt":              BuildInstruction(),
		"image":               reference,
		"guidance_scale":      8.5,
		"num_inference_steps": 50,
		"negative_prompt":     NegativePrompt,
		"seed":                seed,
		"strength":            0.75,
		"refine":              "expert_ensemble_refiner",
	}
}

// SecondaryInput builds the lighter payload used when the primary model fails.
func SecondaryInput(reference string) map[string]any {
	return map[string]any{
		"prompt":              BuildInstruction(),
		"image":               reference,
		"strength":            0.6,
		"num_outputs":         1,
		"num_inference_steps": 40,
		"guidance_scale":      7.5,
	}
}
