package render

// VertexShader принимает чередующийся буфер из internal/mesh
const VertexShader = `#version 330 core
layout (location = 0) in vec3 a_Position;
layout (location = 1) in vec2 a_UV;
layout (location = 2) in vec4 a_Color;
layout (location = 3) in float a_TexColorWeight;

uniform mat4 u_ProjectionMatrix;
uniform mat4 u_ViewMatrix;

out vec2 v_UV;
out vec4 v_Color;
out float v_TexColorWeight;

void main() {
    gl_Position = u_ProjectionMatrix * u_ViewMatrix * vec4(a_Position, 1.0);
    v_UV = a_UV;
    v_Color = a_Color;
    v_TexColorWeight = a_TexColorWeight;
}
`

// FragmentShader смешивает плоский цвет и тексель атласа по весу
const FragmentShader = `#version 330 core
in vec2 v_UV;
in vec4 v_Color;
in float v_TexColorWeight;

uniform sampler2D u_Sampler;

out vec4 FragColor;

void main() {
    vec4 texel = texture(u_Sampler, v_UV);
    FragColor = (1.0 - v_TexColorWeight) * v_Color + v_TexColorWeight * texel;
}
`

// Имена uniform-переменных шейдера
const (
	UniformProjection = "u_ProjectionMatrix"
	UniformView       = "u_ViewMatrix"
	UniformSampler    = "u_Sampler"
)
