package generate

// Default templates, keyed by artifact name. Users replace them with
// template blocks in testup.hcl.
var defaultTemplates = map[string]string{
	ArtifactVitestConfig: `import { defineConfig } from 'vitest/config'
import {{ .Framework }} from '{{ plugin .Stack }}'

export default defineConfig({
  plugins: [{{ .Framework }}()],
  test: {
    globals: true,
    environment: '{{ .Environment }}',
    setupFiles: '{{ .SetupFile }}',
  },
})
`,

	ArtifactSetup: `import '@testing-library/jest-dom/vitest'
import { cleanup } from '@testing-library/{{ .Framework }}'
import { afterEach } from 'vitest'

afterEach(() => {
  cleanup()
})
`,

	ArtifactPackageJSON: `{
  "scripts": {{ jsonIndent .Scripts 1 }},
  "devDependencies": {{ jsonIndent .DevDependencies 1 }}
}
`,
}
